// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kernel

import "errors"

var (
	// ErrInvalidFormat is returned if the kernel is not an ELF file of a
	// supported class and machine, or if its program headers are malformed.
	ErrInvalidFormat = errors.New("invalid kernel format")

	// ErrUnsupportedSegment is returned if a loadable segment can not be
	// placed at or above the configured load base.
	ErrUnsupportedSegment = errors.New("unsupported segment")
)

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmdline

import "errors"

var (
	// ErrInvalidArgument is returned if an argument contains a zero byte.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidAlignment is returned if the alignment is not a power of two.
	ErrInvalidAlignment = errors.New("alignment must be a power of two")

	// ErrInvalidBlob is returned by [Decode] for malformed input.
	ErrInvalidBlob = errors.New("invalid argument blob")
)

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guestmem

import "errors"

var (
	// ErrOutOfBounds is returned if an access exceeds its region or the
	// region exceeds the buffer. It always indicates a bug in the layout.
	ErrOutOfBounds = errors.New("access out of bounds")

	// ErrClosed is returned on access after [Memory.Close].
	ErrClosed = errors.New("memory closed")

	// ErrInvalidSize is returned for a zero or unaligned buffer size.
	ErrInvalidSize = errors.New("invalid memory size")
)

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initrd

import (
	"errors"
	"io/fs"
)

var (
	// ErrFileExist is returned if a path is added to the archive twice.
	ErrFileExist = fs.ErrExist

	// ErrFileNotRegular is returned if the source is not a regular file.
	ErrFileNotRegular = errors.New("source is not a regular file")

	// ErrInvalidPath is returned if an archive path is empty or escapes the
	// archive root.
	ErrInvalidPath = errors.New("invalid archive path")
)

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initrd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/cavaliergopher/cpio"
)

// Entry describes a single archive member.
type Entry struct {
	Name string
	Mode fs.FileMode
	Size int64
}

// Inspect lists the members of the CPIO archive. The archive is not modified.
func Inspect(archive []byte) ([]Entry, error) {
	var entries []Entry

	r := cpio.NewReader(bytes.NewReader(archive))

	for {
		hdr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}

		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}

		entries = append(entries, Entry{
			Name: hdr.Name,
			Mode: hdr.FileInfo().Mode(),
			Size: hdr.Size,
		})
	}
}

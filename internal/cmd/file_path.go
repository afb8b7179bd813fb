// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/aibor/kraftrun/internal/kraftrun"
	"github.com/aibor/kraftrun/internal/sys"
)

// FilePath is a [flag.Value] for absolute file paths.
type FilePath string

func (f *FilePath) String() string {
	return string(*f)
}

func (f *FilePath) Set(s string) error {
	path, err := sys.AbsolutePath(s)
	if err != nil {
		return err //nolint:wrapcheck
	}

	*f = FilePath(path)

	return nil
}

// FileList is a [flag.Value] for files added to the initrd archive.
//
// Each element has the format "host[:guest]". Without guest path, the file is
// put into the archive root with its base name. Multiple elements may be
// separated by comma. An empty value clears the list.
type FileList []kraftrun.File

func (f *FileList) String() string {
	elems := make([]string, 0, len(*f))
	for _, file := range *f {
		elems = append(elems, file.Source+":"+file.Target)
	}

	return strings.Join(elems, ",")
}

func (f *FileList) Set(s string) error {
	if s == "" {
		*f = nil
		return nil
	}

	for elem := range strings.SplitSeq(s, ",") {
		source, target, _ := strings.Cut(elem, ":")

		source, err := sys.AbsolutePath(source)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if target == "" {
			target = filepath.Base(source)
		}

		*f = append(*f, kraftrun.File{
			Source: source,
			Target: path.Join("/", target),
		})
	}

	return nil
}

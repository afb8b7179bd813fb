// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initrd

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
)

// Builder collects host files and writes them into a CPIO archive.
//
// Create a new instance using [NewBuilder]. Files are added with
// [Builder.AddFile]. Parent directories are created implicitly.
type Builder struct {
	sourceFS fs.FS
	files    map[string]string
	dirs     map[string]struct{}
}

// NewBuilder creates a [Builder] that reads source files relative to "/".
func NewBuilder() *Builder {
	return NewBuilderFS(os.DirFS("/"))
}

// NewBuilderFS creates a [Builder] that reads source files from the given
// [fs.FS].
func NewBuilderFS(sourceFS fs.FS) *Builder {
	return &Builder{
		sourceFS: sourceFS,
		files:    make(map[string]string),
		dirs:     make(map[string]struct{}),
	}
}

// AddFile adds the source file at the given archive path. The source path is
// absolute or relative to the root of the source file system. The archive path
// is interpreted relative to the archive root.
func (b *Builder) AddFile(archivePath, source string) error {
	name, err := cleanPath(archivePath)
	if err != nil {
		return err
	}

	if _, exists := b.files[name]; exists {
		return fmt.Errorf("%w: %s", ErrFileExist, name)
	}

	if _, exists := b.dirs[name]; exists {
		return fmt.Errorf("%w: %s", ErrFileExist, name)
	}

	for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
		if _, exists := b.files[dir]; exists {
			return fmt.Errorf("%w: parent %s is a file", ErrFileExist, dir)
		}

		b.dirs[dir] = struct{}{}
	}

	b.files[name] = strings.TrimPrefix(path.Clean(source), "/")

	return nil
}

// Len returns the number of files added.
func (b *Builder) Len() int {
	return len(b.files)
}

// Build writes all directories followed by all files into a new archive.
func (b *Builder) Build() ([]byte, error) {
	var buf bytes.Buffer

	w := NewCPIOWriter(&buf)

	// Sorted paths put parents before their children.
	for _, dir := range sortedKeys(b.dirs) {
		err := w.WriteDirectory(dir)
		if err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(b.files) {
		err := b.writeFile(w, name, b.files[name])
		if err != nil {
			return nil, err
		}
	}

	err := w.Close()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (b *Builder) writeFile(w *CPIOWriter, name, source string) error {
	file, err := b.sourceFS.Open(source)
	if err != nil {
		return fmt.Errorf("open source for %s: %w", name, err)
	}
	defer file.Close()

	return w.WriteRegular(name, file, 0)
}

func cleanPath(p string) (string, error) {
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" || p == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}

	if !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}

	return name, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kraftrun

import (
	"errors"
	"fmt"

	"github.com/aibor/kraftrun/internal/cmdline"
	"github.com/aibor/kraftrun/internal/layout"
	"github.com/aibor/kraftrun/internal/vm"
)

// Default sizes.
const (
	DefaultMemory uint64 = 512 << 20
	DefaultStack  uint64 = 8 << 20
)

// ErrInvalidSpec is returned if a [Spec] is not usable.
var ErrInvalidSpec = errors.New("invalid spec")

// File is a host file added to the generated initrd archive.
type File struct {
	// Path of the file on the host.
	Source string
	// Path of the file in the archive.
	Target string
}

// Spec describes a single [Run].
type Spec struct {
	// Path of the kernel ELF file.
	Kernel string
	// Path of a pre-built CPIO archive. Mutually exclusive with Files.
	Initrd string
	// Host files an archive is built from if no Initrd is given.
	Files []File
	// Arguments passed to the guest. The program name is not included.
	Args []string
	// Total guest memory in bytes.
	Memory uint64
	// Stack size in bytes.
	Stack uint64
	// Discard guest console output.
	Quiet bool
	// Alignment unit of the argument blob.
	ArgAlignment uint64

	Layout layout.Config
	VM     vm.Config
}

// DefaultSpec returns a [Spec] with default sizes and configuration.
func DefaultSpec() Spec {
	return Spec{
		Memory:       DefaultMemory,
		Stack:        DefaultStack,
		ArgAlignment: cmdline.DefaultAlignment,
		Layout:       layout.DefaultConfig(),
		VM:           vm.DefaultConfig(),
	}
}

// Validate checks the spec for obvious issues before any file is read.
func (s *Spec) Validate() error {
	if s.Kernel == "" {
		return fmt.Errorf("%w: no kernel given", ErrInvalidSpec)
	}

	if s.Initrd != "" && len(s.Files) > 0 {
		return fmt.Errorf("%w: initrd and files are mutually exclusive", ErrInvalidSpec)
	}

	err := s.Layout.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	err = s.VM.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	return nil
}

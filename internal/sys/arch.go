// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"debug/elf"
	"fmt"
	"runtime"
)

type Arch string

// Known architectures.
const (
	AMD64 Arch = "amd64"
	I386  Arch = "386"
)

// Native is the architecture of the host.
const Native Arch = Arch(runtime.GOARCH)

func (a Arch) String() string {
	return string(a)
}

// ArchOf returns the architecture of ELF files of the given machine type.
func ArchOf(machine elf.Machine) (Arch, error) {
	switch machine {
	case elf.EM_X86_64:
		return AMD64, nil
	case elf.EM_386:
		return I386, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrArchNotSupported, machine)
	}
}

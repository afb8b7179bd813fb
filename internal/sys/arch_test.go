// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys_test

import (
	"debug/elf"
	"testing"

	"github.com/aibor/kraftrun/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchOf(t *testing.T) {
	tests := []struct {
		machine     elf.Machine
		expected    sys.Arch
		expectedErr error
	}{
		{machine: elf.EM_X86_64, expected: sys.AMD64},
		{machine: elf.EM_386, expected: sys.I386},
		{machine: elf.EM_AARCH64, expectedErr: sys.ErrArchNotSupported},
		{machine: elf.EM_RISCV, expectedErr: sys.ErrArchNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.machine.String(), func(t *testing.T) {
			arch, err := sys.ArchOf(tt.machine)
			require.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, tt.expected, arch)
		})
	}
}

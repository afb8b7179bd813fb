// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kvm

import (
	"encoding/binary"
	"testing"

	"github.com/aibor/kraftrun/internal/hypervisor"
	"github.com/aibor/kraftrun/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBootStructures_LongMode(t *testing.T) {
	mem := make([]byte, 16<<20)
	boot := layout.Region{Start: 0, Size: 0x100000}

	require.NoError(t, writeBootStructures(mem, boot, true))

	entry := func(addr uint64) uint64 {
		return binary.LittleEndian.Uint64(mem[addr:])
	}

	assert.Equal(t, uint64(0x00af9a000000ffff), entry(gdtAddr+8), "code64 descriptor")
	assert.Equal(t, uint64(pdptAddr|0x3), entry(pml4Addr))
	assert.Equal(t, uint64(pdAddr|0x3), entry(pdptAddr))
	assert.Zero(t, entry(pdptAddr+8), "single page directory")

	assert.Equal(t, uint64(0x83), entry(pdAddr), "first 2 MiB page")
	assert.Equal(t, uint64(0x200083), entry(pdAddr+8), "second 2 MiB page")
	assert.Equal(t, uint64(0x3fe00083), entry(pdAddr+511*8), "last page of first GiB")
}

func TestNumPageDirectories(t *testing.T) {
	assert.Equal(t, uint64(1), numPageDirectories(0))
	assert.Equal(t, uint64(1), numPageDirectories(gigabyte))
	assert.Equal(t, uint64(2), numPageDirectories(gigabyte+pageSize2M))
	assert.Equal(t, uint64(4), numPageDirectories(4*gigabyte))
}

func TestWriteBootStructures_ProtectedMode(t *testing.T) {
	mem := make([]byte, 0x2000)
	boot := layout.Region{Start: 0, Size: 0x1000}

	require.NoError(t, writeBootStructures(mem, boot, false))

	assert.Equal(t, uint64(0x00cf9a000000ffff), binary.LittleEndian.Uint64(mem[gdtAddr+24:]))
	assert.Zero(t, binary.LittleEndian.Uint64(mem[pml4Addr:]), "no page tables")
}

func TestWriteBootStructures_BootTooSmall(t *testing.T) {
	mem := make([]byte, 0x10000)
	boot := layout.Region{Start: 0, Size: 0x3000}

	err := writeBootStructures(mem, boot, true)
	require.ErrorIs(t, err, hypervisor.ErrInvalidState)
}

func TestBootEnd(t *testing.T) {
	assert.Equal(t, uint64(0x4000), bootEnd(64<<20, true))
	assert.Equal(t, uint64(0x7000), bootEnd(4*gigabyte, true))
	assert.Equal(t, uint64(0x520), bootEnd(64<<20, false))
}

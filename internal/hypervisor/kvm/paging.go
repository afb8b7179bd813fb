// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kvm

import (
	"encoding/binary"
	"fmt"

	"github.com/aibor/kraftrun/internal/hypervisor"
	"github.com/aibor/kraftrun/internal/layout"
)

// Guest physical addresses of the boot structures. All of them must be in
// the boot region below the kernel.
const (
	gdtAddr  = 0x500
	pml4Addr = 0x1000
	pdptAddr = 0x2000
	pdAddr   = 0x3000
)

const (
	pageSize2M = 1 << 21
	gigabyte   = 1 << 30
	ptEntries  = 512
)

// Page table entry bits.
const (
	ptePresent  = 1 << 0
	pteWritable = 1 << 1
	pteHuge     = 1 << 7
)

// GDT selectors.
const (
	selCode64 = 0x08
	selData   = 0x10
	selCode32 = 0x18
)

// gdt holds flat descriptors with base 0 and limit 4 GiB.
var gdt = [...]uint64{
	0,                  // null
	0x00af9a000000ffff, // 64 bit code
	0x00cf92000000ffff, // data
	0x00cf9a000000ffff, // 32 bit code
}

// bootEnd returns the first address after the boot structures required for
// the given memory size.
func bootEnd(memSize uint64, longMode bool) uint64 {
	if !longMode {
		return gdtAddr + uint64(len(gdt)*8)
	}

	return pdAddr + numPageDirectories(memSize)*ptEntries*8
}

func numPageDirectories(memSize uint64) uint64 {
	return max(1, (memSize+gigabyte-1)/gigabyte)
}

// writeBootStructures writes the GDT and, for long mode, identity mapping
// page tables for the complete guest memory into mem.
func writeBootStructures(mem []byte, boot layout.Region, longMode bool) error {
	memSize := uint64(len(mem))

	end := bootEnd(memSize, longMode)
	if !boot.Contains(0, end) || end > memSize {
		return fmt.Errorf("%w: boot region %s too small, need %#x bytes",
			hypervisor.ErrInvalidState, boot, end)
	}

	for idx, desc := range gdt {
		binary.LittleEndian.PutUint64(mem[gdtAddr+idx*8:], desc)
	}

	if !longMode {
		return nil
	}

	binary.LittleEndian.PutUint64(mem[pml4Addr:], pdptAddr|ptePresent|pteWritable)

	for dir := range numPageDirectories(memSize) {
		pd := pdAddr + dir*ptEntries*8
		binary.LittleEndian.PutUint64(mem[pdptAddr+dir*8:], pd|ptePresent|pteWritable)

		for entry := range uint64(ptEntries) {
			addr := dir*gigabyte + entry*pageSize2M
			binary.LittleEndian.PutUint64(mem[pd+entry*8:], addr|ptePresent|pteWritable|pteHuge)
		}
	}

	return nil
}

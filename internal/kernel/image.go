// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kernel

import (
	"debug/elf"
	"slices"
)

// Segment is a single loadable segment of a kernel [Image].
type Segment struct {
	// Offset of the segment data in the kernel file.
	FileOffset uint64
	// Number of bytes to copy from the kernel file.
	FileSize uint64
	// Guest address the segment is loaded at.
	Addr uint64
	// Size of the segment in guest memory. The part beyond FileSize is zero.
	MemSize uint64
	// Permission flags as declared by the program header.
	Flags elf.ProgFlag
}

// End returns the first guest address after the segment.
func (s Segment) End() uint64 {
	return s.Addr + s.MemSize
}

// Image is the validated, immutable view of a kernel file.
type Image struct {
	data     []byte
	entry    uint64
	class    elf.Class
	machine  elf.Machine
	segments []Segment
}

// Entry returns the guest address execution starts at.
func (i *Image) Entry() uint64 {
	return i.entry
}

// Class returns the ELF class of the kernel.
func (i *Image) Class() elf.Class {
	return i.class
}

// Machine returns the ELF machine of the kernel.
func (i *Image) Machine() elf.Machine {
	return i.machine
}

// LongMode reports whether the kernel expects to be entered in 64 bit mode.
func (i *Image) LongMode() bool {
	return i.class == elf.ELFCLASS64
}

// Segments returns the loadable segments ordered by guest address.
func (i *Image) Segments() []Segment {
	return slices.Clone(i.segments)
}

// End returns the first guest address after the highest segment.
func (i *Image) End() uint64 {
	var end uint64

	for _, seg := range i.segments {
		end = max(end, seg.End())
	}

	return end
}

// Data returns the file bytes of the given segment. The returned slice must not
// be modified.
func (i *Image) Data(seg Segment) []byte {
	return i.data[seg.FileOffset : seg.FileOffset+seg.FileSize]
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kernel

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
)

// TestSegment describes a segment for [BuildTestELF].
type TestSegment struct {
	Addr    uint64
	Data    []byte
	MemSize uint64
}

// TestELF describes a minimal ELF file built by [BuildTestELF].
type TestELF struct {
	Class    elf.Class
	Machine  elf.Machine
	Type     elf.Type
	Entry    uint64
	Segments []TestSegment
}

// BuildTestELF creates the bytes of an ELF file with one PT_LOAD program
// header per segment. Zero values default to an x86_64 executable.
func BuildTestELF(tb testing.TB, spec TestELF) []byte {
	tb.Helper()

	if spec.Class == elf.ELFCLASSNONE {
		spec.Class = elf.ELFCLASS64
	}

	if spec.Machine == elf.EM_NONE {
		spec.Machine = elf.EM_X86_64
		if spec.Class == elf.ELFCLASS32 {
			spec.Machine = elf.EM_386
		}
	}

	if spec.Type == elf.ET_NONE {
		spec.Type = elf.ET_EXEC
	}

	ident := [elf.EI_NIDENT]byte{
		0x7f, 'E', 'L', 'F',
		byte(spec.Class),
		byte(elf.ELFDATA2LSB),
		byte(elf.EV_CURRENT),
	}

	var hdr, progs, data bytes.Buffer

	write := func(buf *bytes.Buffer, v any) {
		err := binary.Write(buf, binary.LittleEndian, v)
		if err != nil {
			tb.Fatalf("write elf: %v", err)
		}
	}

	switch spec.Class {
	case elf.ELFCLASS64:
		const ehsize, phentsize = 64, 56

		dataOff := uint64(ehsize + phentsize*len(spec.Segments))

		for _, seg := range spec.Segments {
			write(&progs, elf.Prog64{
				Type:   uint32(elf.PT_LOAD),
				Flags:  uint32(elf.PF_R | elf.PF_W | elf.PF_X),
				Off:    dataOff + uint64(data.Len()),
				Vaddr:  seg.Addr,
				Paddr:  seg.Addr,
				Filesz: uint64(len(seg.Data)),
				Memsz:  memSize(seg),
				Align:  1,
			})
			data.Write(seg.Data)
		}

		write(&hdr, elf.Header64{
			Ident:     ident,
			Type:      uint16(spec.Type),
			Machine:   uint16(spec.Machine),
			Version:   uint32(elf.EV_CURRENT),
			Entry:     spec.Entry,
			Phoff:     ehsize,
			Ehsize:    ehsize,
			Phentsize: phentsize,
			Phnum:     uint16(len(spec.Segments)),
			Shentsize: 64,
		})
	case elf.ELFCLASS32:
		const ehsize, phentsize = 52, 32

		dataOff := uint32(ehsize + phentsize*len(spec.Segments))

		for _, seg := range spec.Segments {
			write(&progs, elf.Prog32{
				Type:   uint32(elf.PT_LOAD),
				Off:    dataOff + uint32(data.Len()),
				Vaddr:  uint32(seg.Addr),
				Paddr:  uint32(seg.Addr),
				Filesz: uint32(len(seg.Data)),
				Memsz:  uint32(memSize(seg)),
				Flags:  uint32(elf.PF_R | elf.PF_W | elf.PF_X),
				Align:  1,
			})
			data.Write(seg.Data)
		}

		write(&hdr, elf.Header32{
			Ident:     ident,
			Type:      uint16(spec.Type),
			Machine:   uint16(spec.Machine),
			Version:   uint32(elf.EV_CURRENT),
			Entry:     uint32(spec.Entry),
			Phoff:     ehsize,
			Ehsize:    ehsize,
			Phentsize: phentsize,
			Phnum:     uint16(len(spec.Segments)),
			Shentsize: 40,
		})
	default:
		tb.Fatalf("unsupported class %s", spec.Class)
	}

	hdr.Write(progs.Bytes())
	hdr.Write(data.Bytes())

	return hdr.Bytes()
}

func memSize(seg TestSegment) uint64 {
	if seg.MemSize == 0 {
		return uint64(len(seg.Data))
	}

	return seg.MemSize
}

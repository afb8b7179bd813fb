// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kernel

import (
	"bytes"
	"debug/elf"
	"fmt"
	"math"
	"os"
	"slices"
)

// Config holds the parameters the loader validates segments against.
type Config struct {
	// Lowest guest address a segment may be loaded at.
	LoadBase uint64
}

// Load parses and validates the given kernel file content.
func Load(data []byte, cfg Config) (*Image, error) {
	file, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	defer file.Close()

	err = validateHeader(file.FileHeader)
	if err != nil {
		return nil, err
	}

	img := &Image{
		data:    data,
		entry:   file.Entry,
		class:   file.Class,
		machine: file.Machine,
	}

	for idx, prog := range file.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}

		seg, err := newSegment(prog.ProgHeader, uint64(len(data)), cfg)
		if err != nil {
			return nil, fmt.Errorf("program header %d: %w", idx, err)
		}

		img.segments = append(img.segments, seg)
	}

	if len(img.segments) == 0 {
		return nil, fmt.Errorf("%w: no loadable segment", ErrInvalidFormat)
	}

	slices.SortFunc(img.segments, func(a, b Segment) int {
		switch {
		case a.Addr < b.Addr:
			return -1
		case a.Addr > b.Addr:
			return 1
		default:
			return 0
		}
	})

	for idx := 1; idx < len(img.segments); idx++ {
		prev, cur := img.segments[idx-1], img.segments[idx]
		if cur.Addr < prev.End() {
			return nil, fmt.Errorf(
				"%w: segment at %#x overlaps segment at %#x",
				ErrInvalidFormat, cur.Addr, prev.Addr,
			)
		}
	}

	if !img.containsEntry() {
		return nil, fmt.Errorf(
			"%w: entry %#x outside of loadable segments",
			ErrInvalidFormat, img.entry,
		)
	}

	return img, nil
}

// LoadFile reads the kernel file at the given path and calls [Load].
func LoadFile(path string, cfg Config) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	return Load(data, cfg)
}

func validateHeader(hdr elf.FileHeader) error {
	if hdr.Data != elf.ELFDATA2LSB {
		return fmt.Errorf("%w: byte order %s", ErrInvalidFormat, hdr.Data)
	}

	switch {
	case hdr.Class == elf.ELFCLASS64 && hdr.Machine == elf.EM_X86_64:
	case hdr.Class == elf.ELFCLASS32 && hdr.Machine == elf.EM_386:
	default:
		return fmt.Errorf(
			"%w: machine %s with class %s not supported",
			ErrInvalidFormat, hdr.Machine, hdr.Class,
		)
	}

	if hdr.Type != elf.ET_EXEC {
		return fmt.Errorf("%w: type %s is not executable", ErrInvalidFormat, hdr.Type)
	}

	return nil
}

func newSegment(prog elf.ProgHeader, fileLen uint64, cfg Config) (Segment, error) {
	if prog.Filesz > prog.Memsz {
		return Segment{}, fmt.Errorf(
			"%w: file size %d exceeds memory size %d",
			ErrInvalidFormat, prog.Filesz, prog.Memsz,
		)
	}

	if prog.Off > fileLen || prog.Filesz > fileLen-prog.Off {
		return Segment{}, fmt.Errorf(
			"%w: file range %#x+%d beyond end of file",
			ErrInvalidFormat, prog.Off, prog.Filesz,
		)
	}

	if prog.Vaddr < cfg.LoadBase {
		return Segment{}, fmt.Errorf(
			"%w: address %#x below load base %#x",
			ErrUnsupportedSegment, prog.Vaddr, cfg.LoadBase,
		)
	}

	if prog.Memsz > math.MaxUint64-prog.Vaddr {
		return Segment{}, fmt.Errorf(
			"%w: address %#x with size %d overflows",
			ErrUnsupportedSegment, prog.Vaddr, prog.Memsz,
		)
	}

	return Segment{
		FileOffset: prog.Off,
		FileSize:   prog.Filesz,
		Addr:       prog.Vaddr,
		MemSize:    prog.Memsz,
		Flags:      prog.Flags,
	}, nil
}

func (i *Image) containsEntry() bool {
	for _, seg := range i.segments {
		if i.entry >= seg.Addr && i.entry < seg.End() {
			return true
		}
	}

	return false
}

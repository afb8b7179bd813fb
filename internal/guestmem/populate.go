// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guestmem

import (
	"fmt"

	"github.com/aibor/kraftrun/internal/kernel"
	"github.com/aibor/kraftrun/internal/layout"
)

// Populate allocates the buffer for the given plan and copies the kernel
// segments and the initrd image into it. Memory beyond the file part of a
// segment and the stack region stay zero.
func Populate(plan layout.Plan, img *kernel.Image, initrdImage []byte) (*Memory, error) {
	mem, err := New(plan.Total)
	if err != nil {
		return nil, err
	}

	err = populate(mem, plan, img, initrdImage)
	if err != nil {
		_ = mem.Close()
		return nil, err
	}

	return mem, nil
}

func populate(mem *Memory, plan layout.Plan, img *kernel.Image, initrdImage []byte) error {
	for _, seg := range img.Segments() {
		if !plan.Kernel.Contains(seg.Addr, seg.MemSize) {
			return fmt.Errorf("%w: segment at %#x not in kernel region %s",
				ErrOutOfBounds, seg.Addr, plan.Kernel)
		}

		err := mem.Write(plan.Kernel, seg.Addr-plan.Kernel.Start, img.Data(seg))
		if err != nil {
			return fmt.Errorf("write segment at %#x: %w", seg.Addr, err)
		}
	}

	err := mem.Write(plan.Initrd, 0, initrdImage)
	if err != nil {
		return fmt.Errorf("write initrd: %w", err)
	}

	return nil
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guestmem

import (
	"fmt"
	"os"
	"sync"

	"github.com/aibor/kraftrun/internal/layout"
	"golang.org/x/sys/unix"
)

// Memory is a zero initialized, page aligned host mapping used as guest
// physical memory.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

// New allocates a zeroed buffer of the given size. The size must be a
// multiple of the host page size.
func New(size uint64) (*Memory, error) {
	pageSize := uint64(os.Getpagesize())
	if size == 0 || size%pageSize != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	if size > uint64(^uint(0)>>1) {
		return nil, fmt.Errorf("%w: %d exceeds address space", ErrInvalidSize, size)
	}

	data, err := unix.Mmap(
		-1,
		0,
		int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}

	return &Memory{data: data}, nil
}

// Size returns the size of the buffer. It is 0 after [Memory.Close].
func (m *Memory) Size() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.data))
}

// HostMapping returns the underlying mapping for installation into a
// hypervisor sandbox. The slice is invalid after [Memory.Close].
func (m *Memory) HostMapping() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.data
}

// Write copies data into the region at the given offset relative to the
// region start.
func (m *Memory) Write(region layout.Region, offset uint64, data []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dst, err := m.slice(region, offset, uint64(len(data)))
	if err != nil {
		return err
	}

	copy(dst, data)

	return nil
}

// Read returns a copy of length bytes of the region at the given offset
// relative to the region start.
func (m *Memory) Read(region layout.Region, offset, length uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src, err := m.slice(region, offset, length)
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), src...), nil
}

// Close releases the mapping. Calling it again has no effect.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil

	if err != nil {
		return fmt.Errorf("munmap: %w", err)
	}

	return nil
}

func (m *Memory) slice(region layout.Region, offset, length uint64) ([]byte, error) {
	if m.data == nil {
		return nil, ErrClosed
	}

	size := uint64(len(m.data))
	if region.Start > size || region.Size > size-region.Start {
		return nil, fmt.Errorf("%w: region %s exceeds buffer of %d bytes", ErrOutOfBounds, region, size)
	}

	if offset > region.Size || length > region.Size-offset {
		return nil, fmt.Errorf(
			"%w: %d bytes at offset %#x exceed region %s",
			ErrOutOfBounds, length, offset, region,
		)
	}

	start := region.Start + offset

	return m.data[start : start+length], nil
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hypervisor

import (
	"context"

	"github.com/aibor/kraftrun/internal/layout"
)

// Memory is the host memory backing the guest physical memory.
type Memory interface {
	// Size of the guest physical memory.
	Size() uint64
	// HostMapping returns the page aligned host memory that is installed at
	// guest physical address 0 without copying.
	HostMapping() []byte
}

// PortHandler is called with the data of each guest write to an I/O port.
// The data is only valid during the call. Returning a [*HaltError], usually
// created by [Halt], stops the guest with the given status. Any other error
// aborts the run.
type PortHandler func(data []byte) error

// EntryState is the virtual CPU state the guest starts with.
type EntryState struct {
	// Initial instruction pointer.
	IP uint64
	// Initial stack pointer.
	SP uint64
	// Start in 64 bit long mode. Otherwise 32 bit protected mode is used.
	LongMode bool
	// Values for the boot argument registers. On x86_64 these are RDI, RSI
	// and RDX.
	Args [3]uint64
	// Guest memory below the kernel the backend may use for structures
	// like page tables.
	Boot layout.Region
}

// Hypervisor creates sandboxes.
type Hypervisor interface {
	// NewSandbox creates a sandbox for the given amount of guest memory.
	// Errors must wrap [ErrSandboxCreation].
	NewSandbox(ctx context.Context, memSize uint64) (Sandbox, error)
	// BootSize returns the number of bytes from guest physical address 0 the
	// backend needs for boot structures of a guest with the given amount of
	// memory.
	BootSize(memSize uint64) uint64
}

// Sandbox is a virtual machine with a single virtual CPU.
type Sandbox interface {
	// InstallMemory sets the guest physical memory.
	InstallMemory(mem Memory) error
	// HandlePortOut registers the handler for guest writes to the port.
	HandlePortOut(port uint16, handler PortHandler) error
	// SetEntry sets the initial virtual CPU state.
	SetEntry(state EntryState) error
	// Run runs the guest until it halts or faults or the context is done.
	// In the last case the context's error is returned.
	Run(ctx context.Context) (Exit, error)
	// Close releases all resources of the sandbox.
	Close() error
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/aibor/kraftrun/internal/hypervisor"
	"golang.org/x/sys/unix"
)

// DevicePath is the KVM device.
const DevicePath = "/dev/kvm"

// Hypervisor creates KVM sandboxes.
type Hypervisor struct {
	// Path of the KVM device. [DevicePath] if empty.
	Device string
}

var _ hypervisor.Hypervisor = (*Hypervisor)(nil)

// New returns a [Hypervisor] using [DevicePath].
func New() *Hypervisor {
	return &Hypervisor{Device: DevicePath}
}

// NewSandbox implements [hypervisor.Hypervisor].
func (h *Hypervisor) NewSandbox(_ context.Context, memSize uint64) (hypervisor.Sandbox, error) {
	sandbox, err := h.newSandbox(memSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hypervisor.ErrSandboxCreation, err)
	}

	return sandbox, nil
}

// BootSize implements [hypervisor.Hypervisor]. It is the size required in
// long mode, which is the larger one.
func (*Hypervisor) BootSize(memSize uint64) uint64 {
	return bootEnd(memSize, true)
}

func (h *Hypervisor) newSandbox(memSize uint64) (*Sandbox, error) {
	if memSize == 0 || memSize > tssAddr {
		return nil, fmt.Errorf("memory size %#x not in supported range (0, %#x]", memSize, tssAddr)
	}

	device := h.Device
	if device == "" {
		device = DevicePath
	}

	sandbox := &Sandbox{
		kvmFd:    -1,
		vmFd:     -1,
		vcpuFd:   -1,
		memSize:  memSize,
		handlers: make(map[uint16]hypervisor.PortHandler),
	}

	err := sandbox.open(device)
	if err != nil {
		_ = sandbox.Close()
		return nil, err
	}

	return sandbox, nil
}

// Sandbox is a KVM VM with a single vCPU.
type Sandbox struct {
	mu sync.Mutex

	kvmFd  int
	vmFd   int
	vcpuFd int
	run    []byte

	memSize  uint64
	memory   hypervisor.Memory
	entry    *hypervisor.EntryState
	handlers map[uint16]hypervisor.PortHandler
	cpuid    *cpuid
	ran      bool
	closed   bool
}

var _ hypervisor.Sandbox = (*Sandbox)(nil)

func (s *Sandbox) open(device string) error {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return &os.PathError{Op: "open", Path: device, Err: err}
	}

	s.kvmFd = fd

	version, err := ioctlValue(s.kvmFd, kvmGetAPIVersion, 0)
	if err != nil {
		return fmt.Errorf("get api version: %w", err)
	}

	if version != apiVersion {
		return fmt.Errorf("unsupported api version %d", version)
	}

	s.vmFd, err = ioctlValue(s.kvmFd, kvmCreateVM, 0)
	if err != nil {
		return fmt.Errorf("create vm: %w", err)
	}

	_, err = ioctlValue(s.vmFd, kvmSetTSSAddr, tssAddr)
	if err != nil {
		return fmt.Errorf("set tss addr: %w", err)
	}

	s.cpuid = &cpuid{nent: maxCPUIDEntries}

	_, err = ioctl(s.kvmFd, kvmGetSupportedCPUID, unsafe.Pointer(s.cpuid))
	if err != nil {
		return fmt.Errorf("get supported cpuid: %w", err)
	}

	return nil
}

// InstallMemory implements [hypervisor.Sandbox].
func (s *Sandbox) InstallMemory(mem hypervisor.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return hypervisor.ErrSandboxClosed
	}

	mapping := mem.HostMapping()
	if uint64(len(mapping)) != s.memSize {
		return fmt.Errorf("%w: memory size %d, sandbox size %d",
			hypervisor.ErrInvalidState, len(mapping), s.memSize)
	}

	region := &userMemoryRegion{
		slot:          0,
		guestPhysAddr: 0,
		memorySize:    s.memSize,
		userspaceAddr: uint64(uintptr(unsafe.Pointer(&mapping[0]))),
	}

	_, err := ioctl(s.vmFd, kvmSetUserMemoryRegion, unsafe.Pointer(region))
	if err != nil {
		return fmt.Errorf("set user memory region: %w", err)
	}

	s.memory = mem

	return nil
}

// HandlePortOut implements [hypervisor.Sandbox].
func (s *Sandbox) HandlePortOut(port uint16, handler hypervisor.PortHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return hypervisor.ErrSandboxClosed
	}

	s.handlers[port] = handler

	return nil
}

// SetEntry implements [hypervisor.Sandbox]. The state is applied when the
// vCPU is created by [Sandbox.Run].
func (s *Sandbox) SetEntry(state hypervisor.EntryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return hypervisor.ErrSandboxClosed
	}

	s.entry = &state

	return nil
}

// Close implements [hypervisor.Sandbox]. It is safe to call it multiple
// times.
func (s *Sandbox) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	var errs []error

	if s.run != nil {
		err := unix.Munmap(s.run)
		if err != nil {
			errs = append(errs, fmt.Errorf("munmap run: %w", err))
		}

		s.run = nil
	}

	for _, fd := range []*int{&s.vcpuFd, &s.vmFd, &s.kvmFd} {
		if *fd < 0 {
			continue
		}

		err := unix.Close(*fd)
		if err != nil {
			errs = append(errs, fmt.Errorf("close fd %d: %w", *fd, err))
		}

		*fd = -1
	}

	return errors.Join(errs...)
}

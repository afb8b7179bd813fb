// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"unsafe"

	"github.com/aibor/kraftrun/internal/hypervisor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Run implements [hypervisor.Sandbox]. It can be called only once.
func (s *Sandbox) Run(ctx context.Context) (hypervisor.Exit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return hypervisor.Exit{}, hypervisor.ErrSandboxClosed
	case s.ran:
		return hypervisor.Exit{}, fmt.Errorf("%w: already ran", hypervisor.ErrInvalidState)
	case s.memory == nil:
		return hypervisor.Exit{}, fmt.Errorf("%w: no memory", hypervisor.ErrInvalidState)
	case s.entry == nil:
		return hypervisor.Exit{}, fmt.Errorf("%w: no entry state", hypervisor.ErrInvalidState)
	}

	s.ran = true

	// All vCPU ioctls are issued from the thread that created the vCPU.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := s.createVCPU()
	if err != nil {
		return hypervisor.Exit{}, err
	}

	err = s.setupVCPU(*s.entry)
	if err != nil {
		return hypervisor.Exit{}, err
	}

	return s.loop(ctx)
}

func (s *Sandbox) createVCPU() error {
	var err error

	s.vcpuFd, err = ioctlValue(s.vmFd, kvmCreateVCPU, 0)
	if err != nil {
		s.vcpuFd = -1
		return fmt.Errorf("create vcpu: %w", err)
	}

	size, err := ioctlValue(s.kvmFd, kvmGetVCPUMmapSize, 0)
	if err != nil {
		return fmt.Errorf("get vcpu mmap size: %w", err)
	}

	if size < runMinSize {
		return fmt.Errorf("vcpu mmap size %d too small", size)
	}

	s.run, err = unix.Mmap(s.vcpuFd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap vcpu run: %w", err)
	}

	_, err = ioctl(s.vcpuFd, kvmSetCPUID2, unsafe.Pointer(s.cpuid))
	if err != nil {
		return fmt.Errorf("set cpuid: %w", err)
	}

	return nil
}

func (s *Sandbox) setupVCPU(state hypervisor.EntryState) error {
	err := writeBootStructures(s.memory.HostMapping(), state.Boot, state.LongMode)
	if err != nil {
		return err
	}

	sr := &sregs{}

	_, err = ioctl(s.vcpuFd, kvmGetSregs, unsafe.Pointer(sr))
	if err != nil {
		return fmt.Errorf("get sregs: %w", err)
	}

	configureSregs(sr, state.LongMode)

	_, err = ioctl(s.vcpuFd, kvmSetSregs, unsafe.Pointer(sr))
	if err != nil {
		return fmt.Errorf("set sregs: %w", err)
	}

	r := &regs{
		rip:    state.IP,
		rsp:    state.SP,
		rdi:    state.Args[0],
		rsi:    state.Args[1],
		rdx:    state.Args[2],
		rflags: 0x2,
	}

	_, err = ioctl(s.vcpuFd, kvmSetRegs, unsafe.Pointer(r))
	if err != nil {
		return fmt.Errorf("set regs: %w", err)
	}

	return nil
}

func configureSregs(sr *sregs, longMode bool) {
	code := segment{
		limit:   0xffffffff,
		typ:     11, // execute, read, accessed
		present: 1,
		s:       1,
		g:       1,
	}

	data := segment{
		limit:    0xffffffff,
		selector: selData,
		typ:      3, // read, write, accessed
		present:  1,
		s:        1,
		db:       1,
		g:        1,
	}

	if longMode {
		code.selector = selCode64
		code.l = 1
		sr.cr3 = pml4Addr
		sr.cr4 = cr4PAE
		sr.cr0 = cr0PE | cr0MP | cr0ET | cr0NE | cr0WP | cr0AM | cr0PG
		sr.efer = eferLME | eferLMA
	} else {
		code.selector = selCode32
		code.db = 1
		sr.cr3 = 0
		sr.cr4 = 0
		sr.cr0 = cr0PE | cr0ET
		sr.efer = 0
	}

	sr.cs = code
	sr.ds, sr.es, sr.fs, sr.gs, sr.ss = data, data, data, data, data
	sr.gdt = dtable{base: gdtAddr, limit: uint16(len(gdt)*8 - 1)}
}

func (s *Sandbox) loop(ctx context.Context) (hypervisor.Exit, error) {
	stop := s.interruptOnDone(ctx)
	defer stop()

	for {
		err := ctx.Err()
		if err != nil {
			return hypervisor.Exit{}, err
		}

		_, err = ioctlValue(s.vcpuFd, kvmRun, 0)
		if err != nil {
			// Interrupted by a signal, either the runtime's preemption or
			// ours. The context is checked on the next iteration.
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}

			return hypervisor.Exit{}, fmt.Errorf("run vcpu: %w", err)
		}

		exit, done, err := s.handleExit()
		if err != nil || done {
			return exit, err
		}
	}
}

// interruptOnDone kicks the calling thread out of KVM_RUN once the context
// is done. The returned function must be called before the thread is
// unlocked.
func (s *Sandbox) interruptOnDone(ctx context.Context) func() {
	pid, tid := unix.Getpid(), unix.Gettid()
	run := s.run
	done := make(chan struct{})

	var group errgroup.Group

	group.Go(func() error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
		}

		run[runImmediateExit] = 1

		err := unix.Tgkill(pid, tid, unix.SIGURG)
		if err != nil {
			return fmt.Errorf("kick vcpu thread: %w", err)
		}

		return nil
	})

	return func() {
		close(done)

		err := group.Wait()
		if err != nil {
			slog.Debug("Interrupt vCPU", slog.Any("error", err))
		}
	}
}

func (s *Sandbox) handleExit() (hypervisor.Exit, bool, error) {
	reason := exitReason(binary.LittleEndian.Uint32(s.run[runExitReason:]))
	union := s.run[runUnion:]

	switch reason {
	case exitIO:
		return s.handleIO(parseIO(union))
	case exitHLT:
		return hypervisor.Exit{Kind: hypervisor.ExitHalt}, true, nil
	case exitIntr:
		return hypervisor.Exit{}, false, nil
	default:
		fault := describeFault(reason, union)
		fault.IP = s.instructionPointer()

		return hypervisor.Exit{Kind: hypervisor.ExitFault, Fault: &fault}, true, nil
	}
}

func (s *Sandbox) handleIO(io ioExit) (hypervisor.Exit, bool, error) {
	end := io.dataOffset + uint64(io.size)*uint64(io.count)
	if io.dataOffset < runUnion || end > uint64(len(s.run)) {
		return hypervisor.Exit{}, true, fmt.Errorf("io data %#x-%#x outside of run area", io.dataOffset, end)
	}

	data := s.run[io.dataOffset:end]

	if io.direction != ioDirectionOut {
		// Nothing is attached, reads see a floating bus.
		for idx := range data {
			data[idx] = 0xff
		}

		return hypervisor.Exit{}, false, nil
	}

	handler, exists := s.handlers[io.port]
	if !exists {
		return hypervisor.Exit{}, false, nil
	}

	for chunk := range io.count {
		start := uint64(chunk) * uint64(io.size)

		err := handler(data[start : start+uint64(io.size)])
		if err != nil {
			var haltErr *hypervisor.HaltError
			if errors.As(err, &haltErr) {
				return hypervisor.Exit{Kind: hypervisor.ExitHalt, Status: haltErr.Status}, true, nil
			}

			return hypervisor.Exit{}, true, fmt.Errorf("port %#x: %w", io.port, err)
		}
	}

	return hypervisor.Exit{}, false, nil
}

func (s *Sandbox) instructionPointer() uint64 {
	r := &regs{}

	_, err := ioctl(s.vcpuFd, kvmGetRegs, unsafe.Pointer(r))
	if err != nil {
		return 0
	}

	return r.rip
}

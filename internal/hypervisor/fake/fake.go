// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package fake provides a scripted [hypervisor.Hypervisor] for tests.
//
// Instead of executing guest code, a [Sandbox] replays a list of [Step]s
// against the registered port handlers.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aibor/kraftrun/internal/hypervisor"
)

type stepKind int

const (
	stepOut stepKind = iota
	stepHalt
	stepFault
	stepBlock
	stepFail
	stepPeek
)

// Step is a single guest action.
type Step struct {
	kind  stepKind
	port  uint16
	data  []byte
	fault hypervisor.Fault
	err   error
	peek  func(mem []byte, entry hypervisor.EntryState)
}

// Out writes data to the port.
func Out(port uint16, data []byte) Step {
	return Step{kind: stepOut, port: port, data: data}
}

// Hlt halts the guest with status 0.
func Hlt() Step {
	return Step{kind: stepHalt}
}

// Fault stops the guest abnormally.
func Fault(fault hypervisor.Fault) Step {
	return Step{kind: stepFault, fault: fault}
}

// Block blocks until the run context is done.
func Block() Step {
	return Step{kind: stepBlock}
}

// Fail makes the run fail with the given error.
func Fail(err error) Step {
	return Step{kind: stepFail, err: err}
}

// Peek calls fn with the guest memory and entry state as seen by the
// running guest.
func Peek(fn func(mem []byte, entry hypervisor.EntryState)) Step {
	return Step{kind: stepPeek, peek: fn}
}

// Hypervisor creates [Sandbox]es that all replay the same steps.
type Hypervisor struct {
	Steps []Step
	// Returned by NewSandbox, wrapped in [hypervisor.ErrSandboxCreation].
	CreateErr error
	// Returned by Sandbox.Close.
	CloseErr error
	// Returned by BootSize.
	Boot uint64

	mu        sync.Mutex
	sandboxes []*Sandbox
}

var _ hypervisor.Hypervisor = (*Hypervisor)(nil)

// NewSandbox implements [hypervisor.Hypervisor].
func (h *Hypervisor) NewSandbox(_ context.Context, memSize uint64) (hypervisor.Sandbox, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.CreateErr != nil {
		return nil, fmt.Errorf("%w: %w", hypervisor.ErrSandboxCreation, h.CreateErr)
	}

	sandbox := &Sandbox{
		memSize:  memSize,
		steps:    h.Steps,
		closeErr: h.CloseErr,
		handlers: make(map[uint16]hypervisor.PortHandler),
	}
	h.sandboxes = append(h.sandboxes, sandbox)

	return sandbox, nil
}

// BootSize implements [hypervisor.Hypervisor].
func (h *Hypervisor) BootSize(uint64) uint64 {
	return h.Boot
}

// Sandboxes returns all sandboxes created so far.
func (h *Hypervisor) Sandboxes() []*Sandbox {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]*Sandbox(nil), h.sandboxes...)
}

// Sandbox is a scripted [hypervisor.Sandbox].
type Sandbox struct {
	memSize  uint64
	steps    []Step
	closeErr error

	mu       sync.Mutex
	memory   hypervisor.Memory
	entry    *hypervisor.EntryState
	handlers map[uint16]hypervisor.PortHandler
	closes   int
	ignored  int
}

var _ hypervisor.Sandbox = (*Sandbox)(nil)

// InstallMemory implements [hypervisor.Sandbox].
func (s *Sandbox) InstallMemory(mem hypervisor.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closes > 0 {
		return hypervisor.ErrSandboxClosed
	}

	if mem.Size() != s.memSize {
		return fmt.Errorf("%w: memory size %d, sandbox size %d",
			hypervisor.ErrInvalidState, mem.Size(), s.memSize)
	}

	s.memory = mem

	return nil
}

// HandlePortOut implements [hypervisor.Sandbox].
func (s *Sandbox) HandlePortOut(port uint16, handler hypervisor.PortHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closes > 0 {
		return hypervisor.ErrSandboxClosed
	}

	s.handlers[port] = handler

	return nil
}

// SetEntry implements [hypervisor.Sandbox].
func (s *Sandbox) SetEntry(state hypervisor.EntryState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closes > 0 {
		return hypervisor.ErrSandboxClosed
	}

	s.entry = &state

	return nil
}

// Run implements [hypervisor.Sandbox].
func (s *Sandbox) Run(ctx context.Context) (hypervisor.Exit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closes > 0:
		return hypervisor.Exit{}, hypervisor.ErrSandboxClosed
	case s.memory == nil:
		return hypervisor.Exit{}, fmt.Errorf("%w: no memory", hypervisor.ErrInvalidState)
	case s.entry == nil:
		return hypervisor.Exit{}, fmt.Errorf("%w: no entry state", hypervisor.ErrInvalidState)
	}

	for _, step := range s.steps {
		if ctx.Err() != nil {
			return hypervisor.Exit{}, ctx.Err()
		}

		switch step.kind {
		case stepOut:
			handler, exists := s.handlers[step.port]
			if !exists {
				s.ignored++
				continue
			}

			err := handler(step.data)
			if err != nil {
				var haltErr *hypervisor.HaltError
				if errors.As(err, &haltErr) {
					return hypervisor.Exit{Kind: hypervisor.ExitHalt, Status: haltErr.Status}, nil
				}

				return hypervisor.Exit{}, fmt.Errorf("port %#x: %w", step.port, err)
			}
		case stepHalt:
			return hypervisor.Exit{Kind: hypervisor.ExitHalt}, nil
		case stepFault:
			fault := step.fault
			return hypervisor.Exit{Kind: hypervisor.ExitFault, Fault: &fault}, nil
		case stepBlock:
			<-ctx.Done()
			return hypervisor.Exit{}, ctx.Err()
		case stepFail:
			return hypervisor.Exit{}, step.err
		case stepPeek:
			step.peek(s.memory.HostMapping(), *s.entry)
		}
	}

	return hypervisor.Exit{Kind: hypervisor.ExitHalt}, nil
}

// Close implements [hypervisor.Sandbox]. Every call is counted.
func (s *Sandbox) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes++

	return s.closeErr
}

// Closes returns how often Close was called.
func (s *Sandbox) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closes
}

// MemSize returns the size the sandbox was created with.
func (s *Sandbox) MemSize() uint64 {
	return s.memSize
}

// Memory returns the installed memory.
func (s *Sandbox) Memory() hypervisor.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.memory
}

// Entry returns the entry state, if set.
func (s *Sandbox) Entry() (hypervisor.EntryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry == nil {
		return hypervisor.EntryState{}, false
	}

	return *s.entry, true
}

// Ignored returns the number of port writes without handler.
func (s *Sandbox) Ignored() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ignored
}

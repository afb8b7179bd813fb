// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hypervisor

import (
	"fmt"
	"log/slog"
)

// ExitKind describes how the guest stopped.
type ExitKind int

// Exit kinds.
const (
	ExitHalt ExitKind = iota
	ExitFault
)

func (k ExitKind) String() string {
	switch k {
	case ExitHalt:
		return "halt"
	case ExitFault:
		return "fault"
	default:
		return fmt.Sprintf("ExitKind(%d)", int(k))
	}
}

// Fault describes an abnormal guest exit. Fields the backend can not
// provide are zero.
type Fault struct {
	// Short description of the exit.
	Reason string
	// Instruction pointer at the time of the exit.
	IP uint64
	// Faulting guest physical address, if any.
	Address uint64
	// Backend specific details.
	Detail string
}

func (f Fault) String() string {
	msg := fmt.Sprintf("%s at ip %#x", f.Reason, f.IP)

	if f.Address != 0 {
		msg += fmt.Sprintf(", address %#x", f.Address)
	}

	if f.Detail != "" {
		msg += ": " + f.Detail
	}

	return msg
}

// Exit is the terminal state of a guest run.
type Exit struct {
	Kind ExitKind
	// Status reported by the guest. Only set for [ExitHalt].
	Status int
	// Only set for [ExitFault].
	Fault *Fault
}

// LogValue implements [slog.LogValuer].
func (e Exit) LogValue() slog.Value {
	if e.Fault != nil {
		return slog.GroupValue(
			slog.String("kind", e.Kind.String()),
			slog.String("fault", e.Fault.String()),
		)
	}

	return slog.GroupValue(
		slog.String("kind", e.Kind.String()),
		slog.Int("status", e.Status),
	)
}

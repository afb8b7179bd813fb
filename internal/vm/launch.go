// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aibor/kraftrun/internal/console"
	"github.com/aibor/kraftrun/internal/exitcode"
	"github.com/aibor/kraftrun/internal/hypervisor"
	"github.com/aibor/kraftrun/internal/layout"
	"github.com/google/uuid"
)

// Memory is populated guest memory. [Launch] takes ownership and closes it.
type Memory interface {
	hypervisor.Memory
	io.Closer
}

// Spec describes a single [Launch].
type Spec struct {
	Config Config
	// Layout the memory was populated with.
	Plan layout.Plan
	// Populated guest memory of Plan.Total bytes.
	Memory Memory
	// Length of the initrd image at the start of the initrd region.
	InitrdSize uint64
	// Guest address execution starts at.
	Entry uint64
	// Start the guest in 64 bit long mode.
	LongMode bool
	// Receives the guest console output.
	Output io.Writer
	// Discard the guest console output.
	Suppress bool
}

// Result is the outcome of a guest run.
type Result struct {
	// Unique ID of the sandbox the guest ran in.
	Sandbox string
	Exit    hypervisor.Exit
	// Console bytes written to the output.
	Forwarded uint64
	// Console bytes discarded.
	Dropped uint64
	// Wall time the guest ran.
	Duration time.Duration
}

// Launch runs the guest described by spec in a new sandbox of hv.
//
// It blocks until the guest halts or faults or the context is done. The
// sandbox and spec.Memory are released before Launch returns, whatever
// the outcome. A guest fault is returned as [*GuestFaultError] along with
// the result.
func Launch(ctx context.Context, hv hypervisor.Hypervisor, spec Spec) (result Result, err error) {
	res := &guard{memory: spec.Memory}

	defer func() {
		releaseErr := res.release()
		if releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}()

	err = spec.Config.Validate()
	if err != nil {
		return result, err
	}

	result.Sandbox = uuid.NewString()
	logger := slog.With(slog.String("sandbox", result.Sandbox))

	start := time.Now()

	sandbox, err := hv.NewSandbox(ctx, spec.Plan.Total)
	if err != nil {
		if !errors.Is(err, hypervisor.ErrSandboxCreation) {
			err = fmt.Errorf("%w: %w", hypervisor.ErrSandboxCreation, err)
		}

		return result, err
	}

	res.sandbox = sandbox

	logger.Debug("Sandbox created", slog.Duration("took", time.Since(start)))

	relay := &console.Relay{
		Name:     "console",
		Output:   spec.Output,
		Suppress: spec.Suppress,
	}

	err = setup(sandbox, spec, relay)
	if err != nil {
		return result, err
	}

	logger.Debug("Run guest",
		slog.Any("plan", spec.Plan),
		slog.String("entry", fmt.Sprintf("%#x", spec.Entry)),
		slog.Bool("long_mode", spec.LongMode),
	)

	start = time.Now()
	exit, err := sandbox.Run(ctx)

	result = Result{
		Sandbox:   result.Sandbox,
		Exit:      exit,
		Forwarded: relay.Forwarded(),
		Dropped:   relay.Dropped(),
		Duration:  time.Since(start),
	}

	logger.Debug("Guest stopped",
		slog.Any("exit", exit),
		slog.Any("console", relay),
		slog.Duration("took", result.Duration),
	)

	if err != nil {
		return result, fmt.Errorf("run: %w", err)
	}

	if exit.Kind == hypervisor.ExitFault {
		fault := hypervisor.Fault{Reason: "unknown"}
		if exit.Fault != nil {
			fault = *exit.Fault
		}

		return result, &GuestFaultError{Sandbox: result.Sandbox, Fault: fault}
	}

	return result, nil
}

func setup(sandbox hypervisor.Sandbox, spec Spec, relay *console.Relay) error {
	err := sandbox.InstallMemory(spec.Memory)
	if err != nil {
		return fmt.Errorf("install memory: %w", err)
	}

	err = sandbox.HandlePortOut(spec.Config.ConsolePort, relay.Handle)
	if err != nil {
		return fmt.Errorf("console port: %w", err)
	}

	err = sandbox.HandlePortOut(spec.Config.ExitPort, handleExit)
	if err != nil {
		return fmt.Errorf("exit port: %w", err)
	}

	err = sandbox.SetEntry(hypervisor.EntryState{
		IP:       spec.Entry,
		SP:       spec.Plan.StackTop(),
		LongMode: spec.LongMode,
		Args: [3]uint64{
			spec.Plan.Initrd.Start,
			spec.InitrdSize,
			spec.Plan.Total,
		},
		Boot: spec.Plan.Boot,
	})
	if err != nil {
		return fmt.Errorf("set entry: %w", err)
	}

	return nil
}

func handleExit(data []byte) error {
	status, err := exitcode.Decode(data)
	if err != nil {
		return err
	}

	return hypervisor.Halt(status)
}

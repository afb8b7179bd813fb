// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kraftrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aibor/kraftrun/internal/exitcode"
	"github.com/aibor/kraftrun/internal/guestmem"
	"github.com/aibor/kraftrun/internal/hypervisor"
	"github.com/aibor/kraftrun/internal/layout"
	"github.com/aibor/kraftrun/internal/vm"
	"github.com/docker/go-units"
)

// Run boots the kernel described by spec in a sandbox of hv. Guest console
// output is written to output unless [Spec.Quiet] is set.
//
// It returns no error if the guest halts with status 0. A non-zero status is
// returned as [exitcode.Error]. The guest memory is planned before any
// sandbox is created, so a [layout.ErrInsufficientMemory] never leaves
// hypervisor resources behind.
func Run(
	ctx context.Context,
	spec Spec,
	hv hypervisor.Hypervisor,
	output io.Writer,
) (vm.Result, error) {
	err := spec.Validate()
	if err != nil {
		return vm.Result{}, err
	}

	start := time.Now()

	inputs, err := prepare(ctx, spec)
	if err != nil {
		return vm.Result{}, err
	}

	plan, err := layout.New(spec.Layout, layout.Request{
		KernelEnd:  inputs.image.End(),
		InitrdSize: uint64(len(inputs.initrd)),
		Memory:     spec.Memory,
		Stack:      spec.Stack,
		Boot:       hv.BootSize(spec.Memory),
	})
	if err != nil {
		return vm.Result{}, fmt.Errorf("plan memory: %w", err)
	}

	mem, err := guestmem.Populate(plan, inputs.image, inputs.initrd)
	if err != nil {
		return vm.Result{}, fmt.Errorf("populate memory: %w", err)
	}

	slog.Debug("Guest memory prepared",
		slog.Any("plan", plan),
		slog.Duration("took", time.Since(start)),
	)

	slog.Info("Starting kernel", slog.String("memory", units.BytesSize(float64(plan.Total))))

	result, err := vm.Launch(ctx, hv, vm.Spec{
		Config:     spec.VM,
		Plan:       plan,
		Memory:     mem,
		InitrdSize: uint64(len(inputs.initrd)),
		Entry:      inputs.image.Entry(),
		LongMode:   inputs.image.LongMode(),
		Output:     output,
		Suppress:   spec.Quiet,
	})
	if err != nil {
		return result, fmt.Errorf("launch: %w", err)
	}

	slog.Info("Kernel completed",
		slog.String("sandbox", result.Sandbox),
		slog.Int("status", result.Exit.Status),
		slog.Duration("took", result.Duration),
	)

	if result.Exit.Status != 0 {
		return result, exitcode.Error(result.Exit.Status)
	}

	return result, nil
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"fmt"
	"log/slog"
	"math"
)

// Request holds the sizes a [Plan] is computed for.
type Request struct {
	// First address after the highest kernel segment.
	KernelEnd uint64
	// Length of the initrd image. May be 0.
	InitrdSize uint64
	// Requested total guest memory.
	Memory uint64
	// Requested stack size.
	Stack uint64
	// Size of the boot structures the hypervisor backend places below the
	// load base.
	Boot uint64
}

// Plan is the immutable memory layout for a single guest run. All regions are
// page aligned and do not overlap.
type Plan struct {
	// Size of the guest memory.
	Total uint64
	// Area below the kernel, reserved for the hypervisor backend.
	Boot Region
	// Holds all kernel segments.
	Kernel Region
	// Holds the initrd image. Empty if there is no initrd image.
	Initrd Region
	// Stack at the top of the guest memory.
	Stack Region
}

// StackTop returns the initial stack pointer.
func (p Plan) StackTop() uint64 {
	return p.Stack.End()
}

// LogValue implements [slog.LogValuer].
func (p Plan) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("total", humanSize(p.Total)),
		slog.Any("kernel", p.Kernel),
		slog.Any("initrd", p.Initrd),
		slog.Any("stack", p.Stack),
	)
}

// New computes the [Plan] for the given request.
//
// The kernel region starts at the load base and ends at the page aligned
// kernel end. The initrd region follows directly. The stack region is placed
// at the top of the page aligned memory. If the stack would overlap the kernel
// or initrd region, an [*InsufficientMemoryError] is returned. If the boot
// region below the load base is smaller than requested,
// [ErrBootRegionTooSmall] is returned.
func New(cfg Config, req Request) (Plan, error) {
	err := cfg.Validate()
	if err != nil {
		return Plan{}, err
	}

	if req.Boot > cfg.LoadBase {
		return Plan{}, fmt.Errorf("%w: load base %#x, need %#x",
			ErrBootRegionTooSmall, cfg.LoadBase, req.Boot)
	}

	total := cfg.alignDown(req.Memory)

	kernelEnd, ok := cfg.AlignUp(max(req.KernelEnd, cfg.LoadBase))
	if !ok {
		return Plan{}, insufficient(math.MaxUint64, total)
	}

	initrdSize, ok := cfg.AlignUp(req.InitrdSize)
	if !ok {
		return Plan{}, insufficient(math.MaxUint64, total)
	}

	stackSize, ok := cfg.AlignUp(req.Stack)
	if !ok {
		return Plan{}, insufficient(math.MaxUint64, total)
	}

	required, ok := add(kernelEnd, initrdSize, stackSize)
	if !ok {
		return Plan{}, insufficient(math.MaxUint64, total)
	}

	if required > total {
		return Plan{}, insufficient(required, total)
	}

	plan := Plan{
		Total: total,
		Boot: Region{
			Start: 0,
			Size:  cfg.LoadBase,
		},
		Kernel: Region{
			Start: cfg.LoadBase,
			Size:  kernelEnd - cfg.LoadBase,
		},
		Initrd: Region{
			Start: kernelEnd,
			Size:  initrdSize,
		},
		Stack: Region{
			Start: total - stackSize,
			Size:  stackSize,
		},
	}

	return plan, nil
}

func insufficient(required, available uint64) error {
	return &InsufficientMemoryError{
		Required:  required,
		Available: available,
	}
}

func add(values ...uint64) (uint64, bool) {
	var sum uint64

	for _, value := range values {
		if value > math.MaxUint64-sum {
			return 0, false
		}

		sum += value
	}

	return sum, true
}

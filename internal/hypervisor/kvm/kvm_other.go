// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !linux || !amd64

package kvm

import (
	"context"
	"fmt"
	"runtime"

	"github.com/aibor/kraftrun/internal/hypervisor"
	"github.com/aibor/kraftrun/internal/sys"
)

// DevicePath is the KVM device.
const DevicePath = "/dev/kvm"

// Hypervisor is not available on this platform.
type Hypervisor struct {
	Device string
}

var _ hypervisor.Hypervisor = (*Hypervisor)(nil)

// New returns a [Hypervisor] that fails to create sandboxes.
func New() *Hypervisor {
	return &Hypervisor{Device: DevicePath}
}

// NewSandbox implements [hypervisor.Hypervisor]. It always fails.
func (*Hypervisor) NewSandbox(context.Context, uint64) (hypervisor.Sandbox, error) {
	return nil, fmt.Errorf("%w: kvm on %s/%s: %w",
		hypervisor.ErrSandboxCreation, runtime.GOOS, sys.Native, sys.ErrArchNotSupported)
}

// BootSize implements [hypervisor.Hypervisor].
func (*Hypervisor) BootSize(uint64) uint64 {
	return 0
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kvm implements [hypervisor.Hypervisor] with the Linux KVM API.
//
// Each sandbox is a KVM VM with a single vCPU and a single memory slot that
// maps the guest memory at guest physical address 0. 64 bit guests are
// started in long mode with identity mapped 2 MiB pages covering the guest
// memory. 32 bit guests are started in flat protected mode without paging.
//
// The vCPU is created and run on a locked OS thread. A cancelled context
// interrupts the vCPU with a signal.
package kvm

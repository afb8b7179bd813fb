// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package hypervisor defines the contract between the VM launcher and a
// hypervisor backend.
//
// A [Hypervisor] creates a [Sandbox] with a single virtual CPU. The caller
// installs guest memory, registers port handlers, sets the entry state and
// runs the sandbox until the guest halts or faults. Port handlers are called
// synchronously on the thread running the virtual CPU, before the guest is
// resumed.
package hypervisor

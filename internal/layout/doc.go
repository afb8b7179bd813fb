// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package layout plans the guest physical memory.
//
// The guest memory is identity mapped, so offsets in the plan are guest
// physical and guest virtual addresses at the same time:
//
//	0          LoadBase                                       Total
//	| boot area | kernel | initrd | ...free... |        stack |
//
// The boot area below the load base is left to the hypervisor backend for
// structures like page tables.
package layout

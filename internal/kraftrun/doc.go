// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kraftrun boots a kernel image in a short lived micro-VM and relays
// its console output.
//
// The kernel ELF file is loaded and the initrd image is composed from an
// optional archive and the argument blob. Both are written into a freshly
// planned guest memory buffer which is handed to a hypervisor sandbox. The
// guest communicates its exit status either by halting or by writing it to
// the exit port.
package kraftrun

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kernel parses guest kernel ELF files and exposes their loadable
// segments and entry address.
//
// The guest runs identity mapped, so the virtual address a segment declares is
// used as its guest physical address and as its offset in the guest memory
// buffer.
package kernel

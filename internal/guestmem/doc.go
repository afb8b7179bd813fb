// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package guestmem provides the guest memory buffer.
//
// The buffer is a single anonymous mapping that is later installed as guest
// physical memory at address 0. All access goes through [layout.Region]
// values and offsets relative to them.
package guestmem

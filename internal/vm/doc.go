// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package vm runs a single guest in a hypervisor sandbox.
//
// [Launch] owns the sandbox and the guest memory for the whole run and
// releases both on every return path.
package vm

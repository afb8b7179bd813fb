// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmdline encodes the guest argument list into the blob that is
// prepended to the initrd.
//
// Layout of a blob:
//
//	offset 0   8 bytes  magic "HLCMDLN\x00"
//	offset 8   4 bytes  payload length, little-endian
//	offset 12  n bytes  arguments, each terminated by a zero byte
//	           padding  zero bytes up to the next multiple of the alignment
//
// The payload length includes the terminating zero byte of the last argument.
// The guest finds its arguments by checking the first bytes of the initrd for
// the magic. An empty argument list produces no blob at all.
package cmdline

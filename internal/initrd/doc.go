// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package initrd composes the initrd image handed to the guest.
//
// The image is the optional argument blob followed by a CPIO archive. The
// archive is either read verbatim from a file or built from host files with
// [Builder].
package initrd

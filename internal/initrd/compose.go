// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initrd

// Compose returns the initrd image consisting of the blob followed by the
// archive. Both are copied verbatim. The result is empty if both are.
func Compose(blob, archive []byte) []byte {
	image := make([]byte, 0, len(blob)+len(archive))
	image = append(image, blob...)
	image = append(image, archive...)

	return image
}

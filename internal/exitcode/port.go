// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exitcode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidPortData is returned if an exit port write has an unsupported
// size.
var ErrInvalidPortData = errors.New("invalid exit port write")

// Decode returns the exit status the guest wrote to the exit port. The guest
// writes the status as 1, 2 or 4 byte little-endian value.
func Decode(data []byte) (int, error) {
	switch len(data) {
	case 1:
		return int(data[0]), nil
	case 2:
		return int(binary.LittleEndian.Uint16(data)), nil
	case 4:
		return int(binary.LittleEndian.Uint32(data)), nil
	default:
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidPortData, len(data))
	}
}

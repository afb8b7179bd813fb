// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"encoding/binary"
	"fmt"

	"github.com/aibor/kraftrun/internal/hypervisor"
)

type ioExit struct {
	direction  uint8
	size       uint8
	port       uint16
	count      uint32
	dataOffset uint64
}

func parseIO(union []byte) ioExit {
	return ioExit{
		direction:  union[0],
		size:       union[1],
		port:       binary.LittleEndian.Uint16(union[2:]),
		count:      binary.LittleEndian.Uint32(union[4:]),
		dataOffset: binary.LittleEndian.Uint64(union[8:]),
	}
}

func describeFault(reason exitReason, union []byte) hypervisor.Fault {
	fault := hypervisor.Fault{Reason: reason.String()}

	switch reason {
	case exitShutdown:
		fault.Detail = "triple fault"
	case exitException:
		fault.Detail = fmt.Sprintf("exception %d, error code %#x",
			binary.LittleEndian.Uint32(union), binary.LittleEndian.Uint32(union[4:]))
	case exitMMIO:
		fault.Address = binary.LittleEndian.Uint64(union)

		op := "read"
		if union[20] != 0 {
			op = "write"
		}

		fault.Detail = fmt.Sprintf("%s of %d bytes", op, binary.LittleEndian.Uint32(union[16:]))
	case exitFailEntry:
		fault.Detail = fmt.Sprintf("hardware entry failure reason %#x",
			binary.LittleEndian.Uint64(union))
	case exitInternalError:
		fault.Detail = fmt.Sprintf("suberror %d", binary.LittleEndian.Uint32(union))
	case exitSystemEvent:
		fault.Detail = fmt.Sprintf("type %d", binary.LittleEndian.Uint32(union))
	}

	return fault
}

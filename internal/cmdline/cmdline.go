// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmdline

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

const (
	// Magic marks the start of an argument blob.
	Magic = "HLCMDLN\x00"

	// HeaderSize is the size of the magic and the length field.
	HeaderSize = len(Magic) + 4

	// DefaultAlignment pads blobs to the guest page size, so the archive
	// following the blob starts page aligned.
	DefaultAlignment = 4096
)

// Encode builds the argument blob for the given arguments, padded to a
// multiple of align. It returns nil for an empty argument list.
func Encode(args []string, align uint64) ([]byte, error) {
	if !validAlignment(align) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAlignment, align)
	}

	if len(args) == 0 {
		return nil, nil
	}

	payloadLen := 0

	for idx, arg := range args {
		if strings.IndexByte(arg, 0) >= 0 {
			return nil, fmt.Errorf("%w: argument %d contains zero byte", ErrInvalidArgument, idx)
		}

		payloadLen += len(arg) + 1
	}

	if payloadLen > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload of %d bytes too long", ErrInvalidArgument, payloadLen)
	}

	size := alignUp(uint64(HeaderSize+payloadLen), align)
	blob := make([]byte, HeaderSize, size)

	copy(blob, Magic)
	binary.LittleEndian.PutUint32(blob[len(Magic):], uint32(payloadLen))

	for _, arg := range args {
		blob = append(blob, arg...)
		blob = append(blob, 0)
	}

	// Padding, zero initialized by make.
	return blob[:size], nil
}

// Decode parses a blob at the start of data as created by [Encode] with the
// same alignment. It returns the arguments and the length of the padded blob.
// If data does not start with [Magic], it returns no arguments and length 0.
func Decode(data []byte, align uint64) ([]string, uint64, error) {
	if !validAlignment(align) {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidAlignment, align)
	}

	if !HasBlob(data) {
		return nil, 0, nil
	}

	if len(data) < HeaderSize {
		return nil, 0, fmt.Errorf("%w: truncated header", ErrInvalidBlob)
	}

	payloadLen := uint64(binary.LittleEndian.Uint32(data[len(Magic):]))
	end := uint64(HeaderSize) + payloadLen

	if end > uint64(len(data)) {
		return nil, 0, fmt.Errorf(
			"%w: payload length %d exceeds available %d bytes",
			ErrInvalidBlob, payloadLen, len(data)-HeaderSize,
		)
	}

	payload := data[HeaderSize:end]
	if len(payload) == 0 || payload[len(payload)-1] != 0 {
		return nil, 0, fmt.Errorf("%w: payload not terminated", ErrInvalidBlob)
	}

	args := strings.Split(string(payload[:len(payload)-1]), "\x00")

	return args, alignUp(end, align), nil
}

// HasBlob reports whether data starts with an argument blob.
func HasBlob(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Magic))
}

func validAlignment(align uint64) bool {
	return align != 0 && align&(align-1) == 0
}

func alignUp(value, align uint64) uint64 {
	return (value + align - 1) &^ (align - 1)
}

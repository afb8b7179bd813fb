// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// SizeValue is a [flag.Value] for byte sizes.
//
// Binary suffixes like "Ki", "Mi" and "Gi" (optionally followed by "B") use
// multiples of 1024. Decimal suffixes like "K", "M" and "G" use multiples
// of 1000. Values without suffix are bytes.
type SizeValue struct {
	Value *uint64
	// Smallest accepted size. Ignored if zero.
	Lower uint64
}

func (s *SizeValue) String() string {
	if s.Value == nil {
		return "0B"
	}

	return units.BytesSize(float64(*s.Value))
}

func (s *SizeValue) Set(str string) error {
	size, err := ParseSize(str)
	if err != nil {
		return err
	}

	if s.Lower > 0 && size < s.Lower {
		return fmt.Errorf("%s < %s: %w",
			units.BytesSize(float64(size)),
			units.BytesSize(float64(s.Lower)),
			ErrValueOutOfRange,
		)
	}

	*s.Value = size

	return nil
}

// ParseSize parses a human readable byte size.
func ParseSize(str string) (uint64, error) {
	var (
		size int64
		err  error
	)

	str = strings.TrimSpace(str)
	if strings.HasSuffix(str, "i") {
		str += "B"
	}

	if strings.HasSuffix(str, "iB") {
		size, err = units.RAMInBytes(str)
	} else {
		size, err = units.FromHumanSize(str)
	}

	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSize, err)
	}

	if size < 0 {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidSize, str)
	}

	return uint64(size), nil
}

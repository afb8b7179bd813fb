// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"errors"
	"fmt"

	"github.com/docker/go-units"
)

var (
	// ErrInsufficientMemory is returned if the requested memory can not hold
	// all regions. Use [errors.As] with [*InsufficientMemoryError] for
	// details.
	ErrInsufficientMemory = errors.New("insufficient memory")

	// ErrInvalidConfig is returned if a [Config] is not usable.
	ErrInvalidConfig = errors.New("invalid layout config")

	// ErrBootRegionTooSmall is returned if the load base leaves not enough
	// room for the boot structures of the hypervisor backend.
	ErrBootRegionTooSmall = errors.New("boot region too small")
)

// InsufficientMemoryError reports the memory required for a layout and the
// memory that is available.
type InsufficientMemoryError struct {
	Required  uint64
	Available uint64
}

// Shortfall returns the number of bytes missing.
func (e *InsufficientMemoryError) Shortfall() uint64 {
	if e.Required < e.Available {
		return 0
	}

	return e.Required - e.Available
}

func (e *InsufficientMemoryError) Error() string {
	return fmt.Sprintf(
		"%v: required %s, available %s, missing %s",
		ErrInsufficientMemory,
		humanSize(e.Required),
		humanSize(e.Available),
		humanSize(e.Shortfall()),
	)
}

// Is returns true if the target is [ErrInsufficientMemory] or an
// [*InsufficientMemoryError] with the same values.
func (e *InsufficientMemoryError) Is(target error) bool {
	if target == ErrInsufficientMemory {
		return true
	}

	other, ok := target.(*InsufficientMemoryError)
	if !ok {
		return false
	}

	return *e == *other
}

func humanSize(size uint64) string {
	return units.BytesSize(float64(size))
}

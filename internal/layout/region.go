// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import (
	"fmt"
	"log/slog"
)

// Region is a range of guest memory.
type Region struct {
	Start uint64
	Size  uint64
}

// End returns the first address after the region.
func (r Region) End() uint64 {
	return r.Start + r.Size
}

// Contains reports whether the range of the given length at offset addr lies
// completely inside the region.
func (r Region) Contains(addr, length uint64) bool {
	if addr < r.Start || addr > r.End() {
		return false
	}

	return length <= r.End()-addr
}

// Overlaps reports whether both regions share at least one byte.
func (r Region) Overlaps(other Region) bool {
	if r.Size == 0 || other.Size == 0 {
		return false
	}

	return r.Start < other.End() && other.Start < r.End()
}

func (r Region) String() string {
	return fmt.Sprintf("[%#x, %#x)", r.Start, r.End())
}

// LogValue implements [slog.LogValuer].
func (r Region) LogValue() slog.Value {
	return slog.StringValue(r.String())
}

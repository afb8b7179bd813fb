// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package layout_test

import (
	"testing"

	"github.com/aibor/kraftrun/internal/layout"
	"github.com/stretchr/testify/assert"
)

func TestRegion_Contains(t *testing.T) {
	region := layout.Region{Start: 0x1000, Size: 0x1000}

	tests := []struct {
		name     string
		addr     uint64
		length   uint64
		expected bool
	}{
		{name: "whole", addr: 0x1000, length: 0x1000, expected: true},
		{name: "empty at end", addr: 0x2000, length: 0, expected: true},
		{name: "inner", addr: 0x1800, length: 0x10, expected: true},
		{name: "below", addr: 0xfff, length: 1, expected: false},
		{name: "beyond end", addr: 0x1fff, length: 2, expected: false},
		{name: "after", addr: 0x2001, length: 0, expected: false},
		{name: "huge length", addr: 0x1000, length: ^uint64(0), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, region.Contains(tt.addr, tt.length))
		})
	}
}

func TestRegion_Overlaps(t *testing.T) {
	a := layout.Region{Start: 0x1000, Size: 0x1000}

	assert.True(t, a.Overlaps(layout.Region{Start: 0x1fff, Size: 1}))
	assert.True(t, a.Overlaps(layout.Region{Start: 0, Size: 0x1001}))
	assert.False(t, a.Overlaps(layout.Region{Start: 0x2000, Size: 0x1000}))
	assert.False(t, a.Overlaps(layout.Region{Start: 0, Size: 0x1000}))
	assert.False(t, a.Overlaps(layout.Region{Start: 0x1800, Size: 0}))
}

func TestRegion_String(t *testing.T) {
	assert.Equal(t, "[0x100000, 0x110000)", layout.Region{Start: 0x100000, Size: 0x10000}.String())
}

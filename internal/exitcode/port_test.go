// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exitcode_test

import (
	"testing"

	"github.com/aibor/kraftrun/internal/exitcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected int
	}{
		{
			name:     "byte",
			data:     []byte{42},
			expected: 42,
		},
		{
			name:     "word",
			data:     []byte{0x01, 0x02},
			expected: 0x0201,
		},
		{
			name:     "double word",
			data:     []byte{0x00, 0x00, 0x01, 0x00},
			expected: 0x10000,
		},
		{
			name: "zero",
			data: []byte{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := exitcode.Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, data := range [][]byte{nil, {1, 2, 3}, make([]byte, 8)} {
		_, err := exitcode.Decode(data)
		require.ErrorIs(t, err, exitcode.ErrInvalidPortData)
	}
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmdline_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/aibor/kraftrun/internal/cmdline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	blob, err := cmdline.Encode([]string{"/script.py", "arg1"}, cmdline.DefaultAlignment)
	require.NoError(t, err)

	require.Len(t, blob, cmdline.DefaultAlignment)
	assert.Equal(t, []byte(cmdline.Magic), blob[:8])
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(blob[8:12]))
	assert.Equal(t, []byte("/script.py\x00arg1\x00"), blob[12:28])
	assert.Equal(t, make([]byte, cmdline.DefaultAlignment-28), blob[28:])
}

func TestEncode_Empty(t *testing.T) {
	for _, args := range [][]string{nil, {}} {
		blob, err := cmdline.Encode(args, cmdline.DefaultAlignment)
		require.NoError(t, err)
		assert.Nil(t, blob)
	}
}

func TestEncode_EmptyElement(t *testing.T) {
	blob, err := cmdline.Encode([]string{""}, 16)
	require.NoError(t, err)

	assert.Equal(t, []byte("HLCMDLN\x00\x01\x00\x00\x00\x00\x00\x00\x00"), blob)
}

func TestEncode_Alignment(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		align    uint64
		expected int
	}{
		{
			name:     "exact fit",
			args:     []string{"abc"},
			align:    16,
			expected: 16,
		},
		{
			name:     "one over",
			args:     []string{"abcd"},
			align:    16,
			expected: 32,
		},
		{
			name:     "no padding",
			args:     []string{"abcd"},
			align:    1,
			expected: 17,
		},
		{
			name:     "long argument",
			args:     []string{string(bytes.Repeat([]byte("x"), 5000))},
			align:    4096,
			expected: 8192,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := cmdline.Encode(tt.args, tt.align)
			require.NoError(t, err)
			assert.Len(t, blob, tt.expected)
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		align       uint64
		expectedErr error
		message     string
	}{
		{
			name:        "zero byte",
			args:        []string{"ok", "bad\x00arg"},
			align:       cmdline.DefaultAlignment,
			expectedErr: cmdline.ErrInvalidArgument,
			message:     "invalid argument: argument 1 contains zero byte",
		},
		{
			name:        "zero alignment",
			args:        []string{"a"},
			align:       0,
			expectedErr: cmdline.ErrInvalidAlignment,
			message:     "alignment must be a power of two: 0",
		},
		{
			name:        "odd alignment",
			args:        []string{"a"},
			align:       24,
			expectedErr: cmdline.ErrInvalidAlignment,
			message:     "alignment must be a power of two: 24",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := cmdline.Encode(tt.args, tt.align)
			require.ErrorIs(t, err, tt.expectedErr)
			assert.EqualError(t, err, tt.message)
			assert.Nil(t, blob)
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		align uint64
	}{
		{
			name:  "single",
			args:  []string{"/bin/app"},
			align: cmdline.DefaultAlignment,
		},
		{
			name:  "multiple",
			args:  []string{"/script.py", "arg1", "--flag=value with spaces"},
			align: 512,
		},
		{
			name:  "empty elements",
			args:  []string{"", "x", ""},
			align: 8,
		},
		{
			name:  "utf8",
			args:  []string{"grüße", "日本"},
			align: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := cmdline.Encode(tt.args, tt.align)
			require.NoError(t, err)

			archive := []byte("070701rest of the archive")

			args, size, err := cmdline.Decode(append(blob, archive...), tt.align)
			require.NoError(t, err)

			assert.Equal(t, tt.args, args)
			assert.Equal(t, uint64(len(blob)), size)
		})
	}
}

func TestDecode_NoBlob(t *testing.T) {
	args, size, err := cmdline.Decode([]byte("070701"), cmdline.DefaultAlignment)
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Zero(t, size)
}

func TestDecode_Errors(t *testing.T) {
	header := func(length uint32) []byte {
		return binary.LittleEndian.AppendUint32([]byte(cmdline.Magic), length)
	}

	tests := []struct {
		name        string
		data        []byte
		expectedErr error
	}{
		{
			name:        "truncated header",
			data:        []byte(cmdline.Magic + "\x01"),
			expectedErr: cmdline.ErrInvalidBlob,
		},
		{
			name:        "length exceeds data",
			data:        append(header(10), "abc\x00"...),
			expectedErr: cmdline.ErrInvalidBlob,
		},
		{
			name:        "zero length",
			data:        header(0),
			expectedErr: cmdline.ErrInvalidBlob,
		},
		{
			name:        "not terminated",
			data:        append(header(3), "abc"...),
			expectedErr: cmdline.ErrInvalidBlob,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := cmdline.Decode(tt.data, 1)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestHasBlob(t *testing.T) {
	assert.True(t, cmdline.HasBlob([]byte(cmdline.Magic+"more")))
	assert.False(t, cmdline.HasBlob([]byte("HLCMDLN")))
	assert.False(t, cmdline.HasBlob(nil))
}

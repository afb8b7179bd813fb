// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guestmem_test

import (
	"bytes"
	"testing"

	"github.com/aibor/kraftrun/internal/guestmem"
	"github.com/aibor/kraftrun/internal/kernel"
	"github.com/aibor/kraftrun/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1 << 20

func TestPopulate(t *testing.T) {
	cfg := layout.DefaultConfig()
	text := bytes.Repeat([]byte{0x90}, 100)
	data := []byte("data")

	img, err := kernel.Load(kernel.BuildTestELF(t, kernel.TestELF{
		Entry: cfg.LoadBase,
		Segments: []kernel.TestSegment{
			{Addr: cfg.LoadBase, Data: text},
			{Addr: cfg.LoadBase + 0x2000, Data: data, MemSize: 0x1000},
		},
	}), kernel.Config{LoadBase: cfg.LoadBase})
	require.NoError(t, err)

	initrdImage := []byte("initrd image")

	plan, err := layout.New(cfg, layout.Request{
		KernelEnd:  img.End(),
		InitrdSize: uint64(len(initrdImage)),
		Memory:     4 * mib,
		Stack:      64 << 10,
	})
	require.NoError(t, err)

	mem, err := guestmem.Populate(plan, img, initrdImage)
	require.NoError(t, err)

	t.Cleanup(func() { _ = mem.Close() })

	host := mem.HostMapping()
	require.Len(t, host, 4*mib)

	base := cfg.LoadBase
	assert.Equal(t, text, host[base:base+100])
	assert.Equal(t, make([]byte, 0x2000-100), host[base+100:base+0x2000], "gap")
	assert.Equal(t, data, host[base+0x2000:base+0x2004])
	assert.Equal(t, make([]byte, 0x1000-4), host[base+0x2004:base+0x3000], "bss")

	initrdStart := plan.Initrd.Start
	assert.Equal(t, initrdImage, host[initrdStart:initrdStart+uint64(len(initrdImage))])

	assert.Equal(t, make([]byte, plan.Stack.Size), host[plan.Stack.Start:plan.Stack.End()], "stack")
	assert.Equal(t, make([]byte, base), host[:base], "boot area")
}

func TestPopulate_SegmentOutsidePlan(t *testing.T) {
	cfg := layout.DefaultConfig()

	img, err := kernel.Load(kernel.BuildTestELF(t, kernel.TestELF{
		Entry:    cfg.LoadBase,
		Segments: []kernel.TestSegment{{Addr: cfg.LoadBase, Data: []byte{0xf4}, MemSize: 0x3000}},
	}), kernel.Config{LoadBase: cfg.LoadBase})
	require.NoError(t, err)

	plan, err := layout.New(cfg, layout.Request{
		KernelEnd: cfg.LoadBase + 0x1000,
		Memory:    4 * mib,
	})
	require.NoError(t, err)

	mem, err := guestmem.Populate(plan, img, nil)
	require.ErrorIs(t, err, guestmem.ErrOutOfBounds)
	assert.Nil(t, mem)
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vm

import (
	"context"
	"testing"

	"github.com/aibor/kraftrun/internal/hypervisor/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	closes int
	err    error
}

func (c *countingCloser) Close() error {
	c.closes++
	return c.err
}

func TestGuard_Release(t *testing.T) {
	hv := &fake.Hypervisor{}

	sandbox, err := hv.NewSandbox(context.Background(), 4096)
	require.NoError(t, err)

	memory := &countingCloser{}
	g := &guard{sandbox: sandbox, memory: memory}

	for range 3 {
		require.NoError(t, g.release())
	}

	assert.Equal(t, 1, sandbox.(*fake.Sandbox).Closes())
	assert.Equal(t, 1, memory.closes)
}

func TestGuard_ReleaseErrors(t *testing.T) {
	hv := &fake.Hypervisor{CloseErr: assert.AnError}

	sandbox, err := hv.NewSandbox(context.Background(), 4096)
	require.NoError(t, err)

	memory := &countingCloser{err: assert.AnError}
	g := &guard{sandbox: sandbox, memory: memory}

	err = g.release()
	require.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "close sandbox")
	assert.ErrorContains(t, err, "release memory")

	assert.Equal(t, err, g.release(), "same error on repeated release")
	assert.Equal(t, 1, memory.closes, "memory closed once despite error")
}

func TestGuard_ReleaseNothing(t *testing.T) {
	g := &guard{}
	require.NoError(t, g.release())
}

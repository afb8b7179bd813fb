// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initrd_test

import (
	"testing"

	"github.com/aibor/kraftrun/internal/initrd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_Invalid(t *testing.T) {
	entries, err := initrd.Inspect([]byte("this is not a cpio archive at all, just text"))
	require.Error(t, err)
	assert.Nil(t, entries)
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vm

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aibor/kraftrun/internal/hypervisor"
)

// guard releases the sandbox and the guest memory exactly once, the sandbox
// first as it references the memory.
type guard struct {
	sandbox hypervisor.Sandbox
	memory  io.Closer

	once sync.Once
	err  error
}

func (g *guard) release() error {
	g.once.Do(func() {
		var errs []error

		if g.sandbox != nil {
			err := g.sandbox.Close()
			if err != nil {
				errs = append(errs, fmt.Errorf("close sandbox: %w", err))
			}
		}

		if g.memory != nil {
			err := g.memory.Close()
			if err != nil {
				errs = append(errs, fmt.Errorf("release memory: %w", err))
			}
		}

		g.err = errors.Join(errs...)
	})

	return g.err
}

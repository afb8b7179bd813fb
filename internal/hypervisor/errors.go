// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package hypervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrSandboxCreation is returned if the hypervisor can not provide a
	// sandbox, e.g. because the virtualization device is missing or not
	// accessible.
	ErrSandboxCreation = errors.New("sandbox creation failed")

	// ErrSandboxClosed is returned on use of a closed sandbox.
	ErrSandboxClosed = errors.New("sandbox closed")

	// ErrInvalidState is returned if the sandbox is not ready to run, e.g.
	// memory or entry state is missing.
	ErrInvalidState = errors.New("invalid sandbox state")
)

// HaltError is returned by a [PortHandler] to stop the guest with a status.
type HaltError struct {
	Status int
}

// Halt returns a [*HaltError] with the given status.
func Halt(status int) error {
	return &HaltError{Status: status}
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("guest halted with status %d", e.Status)
}

// Is implements the [errors.Is] interface.
func (*HaltError) Is(other error) bool {
	_, ok := other.(*HaltError)
	return ok
}

// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vm

import (
	"errors"

	"github.com/aibor/kraftrun/internal/hypervisor"
)

var (
	// ErrGuestFault is returned if the guest stopped abnormally. Use
	// [errors.As] with [*GuestFaultError] for details.
	ErrGuestFault = errors.New("guest fault")

	// ErrInvalidConfig is returned for an unusable [Config].
	ErrInvalidConfig = errors.New("invalid vm config")
)

// GuestFaultError carries the diagnostic of an abnormal guest exit.
type GuestFaultError struct {
	// ID of the sandbox the guest ran in. May be empty.
	Sandbox string
	Fault   hypervisor.Fault
}

// Error implements the [error] interface.
func (e *GuestFaultError) Error() string {
	if e.Sandbox == "" {
		return ErrGuestFault.Error() + ": " + e.Fault.String()
	}

	return ErrGuestFault.Error() + " in sandbox " + e.Sandbox + ": " + e.Fault.String()
}

// Is implements the [errors.Is] interface.
func (*GuestFaultError) Is(other error) bool {
	if other == ErrGuestFault {
		return true
	}

	_, ok := other.(*GuestFaultError)

	return ok
}

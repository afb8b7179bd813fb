// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package exitcode

import (
	"errors"
	"fmt"
)

// HostFailure is the exit code for any failure on the host side, like
// invalid input or missing hypervisor support. It is chosen outside the
// range guests commonly use.
const HostFailure = 125

// maxCode is the largest exit code a process can report.
const maxCode = 255

// Error is a non-zero guest exit status.
type Error int

func (e Error) Error() string {
	return fmt.Sprintf("guest exit status %d", int(e))
}

// Is returns true for any other [Error], regardless of the status.
func (Error) Is(other error) bool {
	_, ok := other.(Error)
	return ok
}

// Code returns the process exit code for the status. Statuses that do not fit
// into a process exit code are reported as [HostFailure], so they are never
// mistaken for success.
func (e Error) Code() int {
	if e <= 0 || e > maxCode {
		return HostFailure
	}

	return int(e)
}

// From returns an exit code based on the given error and if the error was an
// [Error].
//
// If the error is nil, the exit code is 0. If the error is an [Error] the exit
// code is the return value of [Error.Code]. Otherwise the exit code is
// [HostFailure].
func From(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var statusErr Error
	if errors.As(err, &statusErr) {
		return statusErr.Code(), true
	}

	return HostFailure, false
}

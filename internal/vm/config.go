// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package vm

import "fmt"

const (
	// DefaultConsolePort is the port of the bochs/QEMU debug console.
	DefaultConsolePort = 0xe9

	// DefaultExitPort is the port of the QEMU isa-debug-exit device.
	DefaultExitPort = 0xf4
)

// Config holds the guest I/O ports.
type Config struct {
	// Every byte written to this port is relayed to the output.
	ConsolePort uint16
	// A write to this port halts the guest with the written status.
	ExitPort uint16
}

// DefaultConfig returns the default port assignment.
func DefaultConfig() Config {
	return Config{
		ConsolePort: DefaultConsolePort,
		ExitPort:    DefaultExitPort,
	}
}

// Validate checks the config for consistency.
func (c Config) Validate() error {
	if c.ConsolePort == c.ExitPort {
		return fmt.Errorf("%w: console and exit port are both %#x", ErrInvalidConfig, c.ConsolePort)
	}

	return nil
}

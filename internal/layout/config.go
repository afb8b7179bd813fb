// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package layout

import "fmt"

const (
	// DefaultLoadBase is the lowest address kernel segments are loaded at.
	DefaultLoadBase = 0x100000

	// DefaultPageSize is the x86 base page size.
	DefaultPageSize = 0x1000
)

// Config is the fixed frame every [Plan] is computed in.
type Config struct {
	// Start of the kernel region. Must be page aligned.
	LoadBase uint64
	// Granularity of all regions. Must be a power of two.
	PageSize uint64
}

// DefaultConfig returns the config for x86 guests.
func DefaultConfig() Config {
	return Config{
		LoadBase: DefaultLoadBase,
		PageSize: DefaultPageSize,
	}
}

// Validate checks the config for consistency.
func (c Config) Validate() error {
	if c.PageSize == 0 || c.PageSize&(c.PageSize-1) != 0 {
		return fmt.Errorf("%w: page size %#x is not a power of two", ErrInvalidConfig, c.PageSize)
	}

	if c.alignDown(c.LoadBase) != c.LoadBase {
		return fmt.Errorf("%w: load base %#x is not page aligned", ErrInvalidConfig, c.LoadBase)
	}

	return nil
}

// AlignUp rounds the value up to the next page boundary. The second return
// value is false if the result overflows.
func (c Config) AlignUp(value uint64) (uint64, bool) {
	mask := c.PageSize - 1
	if value > ^uint64(0)-mask {
		return 0, false
	}

	return (value + mask) &^ mask, true
}

func (c Config) alignDown(value uint64) uint64 {
	return value &^ (c.PageSize - 1)
}

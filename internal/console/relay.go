// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"io"
	"log/slog"
	"sync/atomic"
)

// Relay forwards guest output to a host writer.
//
// [Relay.Handle] is used as port handler. It writes synchronously, so the
// output order is the guest's write order. A suppressed relay accepts and
// discards everything.
type Relay struct {
	Name     string
	Output   io.Writer
	Suppress bool

	forwarded atomic.Uint64
	dropped   atomic.Uint64
}

// Handle writes data to the output.
func (r *Relay) Handle(data []byte) error {
	if r.Suppress || r.Output == nil {
		r.dropped.Add(uint64(len(data)))
		return nil
	}

	n, err := r.Output.Write(data)
	r.forwarded.Add(uint64(n))

	if err != nil {
		r.dropped.Add(uint64(len(data) - n))
		return &Error{Name: r.Name, Err: err}
	}

	return nil
}

// Forwarded returns the number of bytes written to the output.
func (r *Relay) Forwarded() uint64 {
	return r.forwarded.Load()
}

// Dropped returns the number of bytes discarded.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}

// LogValue implements [slog.LogValuer].
func (r *Relay) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", r.Name),
		slog.Uint64("forwarded", r.Forwarded()),
		slog.Uint64("dropped", r.Dropped()),
	)
}

// go-tapkey
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-tapkey.
//
// go-tapkey is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-tapkey is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-tapkey; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package status

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// Writer serializes status lines onto an io.Writer. Each line is handed to
// the underlying writer in a single Write call while holding a lock, so
// concurrent callers never interleave partial lines.
//
// Delivery is fire and forget: write errors are logged and counted but never
// returned, matching a status stream that tolerates data loss.
type Writer struct {
	out      io.Writer
	mu       sync.Mutex
	written  uint64
	failures uint64
}

// NewWriter creates a Writer on top of out
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteLine formats and transmits a line. Lines with an unknown type are
// dropped.
func (w *Writer) WriteLine(t Type, value string) {
	line, err := Format(t, value)
	if err != nil {
		log.Warn().Err(err).Msg("dropping status line")
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.out.Write(line)
	if err == nil && n < len(line) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.failures++
		log.Debug().Err(err).Str("type", string(t)).Msg("status line not delivered")
		return
	}
	w.written++
}

// Debugf writes a DEBUG line built from a format string
func (w *Writer) Debugf(format string, args ...any) {
	w.WriteLine(TypeDebug, fmt.Sprintf(format, args...))
}

// Written returns the number of lines delivered to the underlying writer
func (w *Writer) Written() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Failures returns the number of lines lost to write errors
func (w *Writer) Failures() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failures
}

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

package polling

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ZaparooProject/go-tapkey/status"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now uint32
}

func (c *fakeClock) NowMillis() uint32 { return c.now }

func (c *fakeClock) Advance(ms uint32) { c.now += ms }

// scan is one card presentation; a non-nil err makes ReadSerial fail
type scan struct {
	err error
	uid []byte
}

type fakeCards struct {
	pending []scan
	reads   int
	halts   int
}

func (f *fakeCards) present(uid ...byte) {
	f.pending = append(f.pending, scan{uid: uid})
}

func (f *fakeCards) presentUnreadable(err error) {
	f.pending = append(f.pending, scan{err: err})
}

func (f *fakeCards) HasNewCard(context.Context) bool {
	return len(f.pending) > 0
}

func (f *fakeCards) ReadSerial(context.Context) ([]byte, error) {
	f.reads++
	s := f.pending[0]
	f.pending = f.pending[1:]
	return s.uid, s.err
}

func (f *fakeCards) Halt(context.Context) error {
	f.halts++
	return nil
}

type fakeKeys struct {
	pending []byte
}

func (f *fakeKeys) push(keys string) {
	f.pending = append(f.pending, keys...)
}

func (f *fakeKeys) PressedKey(context.Context) (byte, bool) {
	if len(f.pending) == 0 {
		return 0, false
	}
	k := f.pending[0]
	f.pending = f.pending[1:]
	return k, true
}

type fakeBacklight struct {
	calls []bool
}

func (f *fakeBacklight) SetOn(on bool) { f.calls = append(f.calls, on) }

func (f *fakeBacklight) last() (bool, bool) {
	if len(f.calls) == 0 {
		return false, false
	}
	return f.calls[len(f.calls)-1], true
}

// recorder is a Sink backed by the real status writer
type recorder struct {
	*status.Writer
	buf *bytes.Buffer
}

func newRecorder() *recorder {
	buf := &bytes.Buffer{}
	return &recorder{Writer: status.NewWriter(buf), buf: buf}
}

// lines returns every emitted line, checking each is well formed
func (r *recorder) lines(t *testing.T) []status.Line {
	t.Helper()

	raw := r.buf.String()
	if raw == "" {
		return nil
	}
	require.True(t, strings.HasSuffix(raw, status.Terminator), "output %q not CRLF terminated", raw)

	var out []status.Line
	for _, l := range strings.SplitAfter(raw, status.Terminator) {
		if l == "" {
			continue
		}
		line, err := status.ParseLine(l)
		require.NoError(t, err)
		out = append(out, line)
	}
	return out
}

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

import "time"

// Clock is a free-running millisecond counter. It wraps around at the
// uint32 limit (about 49.7 days); compare readings with Elapsed only.
type Clock interface {
	NowMillis() uint32
}

// MonotonicClock derives milliseconds from the runtime's monotonic clock
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a clock that reads zero now
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// NowMillis returns the milliseconds since the clock was created, truncated
// to 32 bits
func (c *MonotonicClock) NowMillis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// Elapsed returns the milliseconds from then to now. Unsigned subtraction
// keeps the result correct across a single wrap of the counter.
func Elapsed(now, then uint32) uint32 {
	return now - then
}

func millis(d time.Duration) uint32 {
	return uint32(d.Milliseconds())
}

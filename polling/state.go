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

import "bytes"

// ScanState is the card monitor's memory of the last accepted card
type ScanState struct {
	// LastUID is the identifier of the last accepted card, nil before the
	// first acceptance
	LastUID []byte
	// LastSeenAt is the clock reading when LastUID was accepted
	LastSeenAt uint32
	// Accepted counts cards reported on the status link
	Accepted uint64
	// Suppressed counts scans discarded as duplicates
	Suppressed uint64
}

// IsDuplicate reports whether uid read at now repeats the last accepted
// card inside the suppression window
func (s *ScanState) IsDuplicate(uid []byte, now, window uint32) bool {
	if s.LastUID == nil {
		return false
	}
	return bytes.Equal(uid, s.LastUID) && Elapsed(now, s.LastSeenAt) < window
}

// clone returns a copy that shares no memory with s
func (s *ScanState) clone() ScanState {
	c := *s
	if s.LastUID != nil {
		c.LastUID = append([]byte(nil), s.LastUID...)
	}
	return c
}

// KeyBuffer is a fixed-capacity buffer of entered keys
type KeyBuffer struct {
	keys     []byte
	capacity int
}

// NewKeyBuffer creates an empty buffer holding at most capacity keys
func NewKeyBuffer(capacity int) *KeyBuffer {
	return &KeyBuffer{
		keys:     make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Append adds k unless the buffer is full. It reports whether k was stored.
func (b *KeyBuffer) Append(k byte) bool {
	if b.Full() {
		return false
	}
	b.keys = append(b.keys, k)
	return true
}

// Full reports whether the buffer is at capacity
func (b *KeyBuffer) Full() bool {
	return len(b.keys) >= b.capacity
}

// Len returns the number of buffered keys
func (b *KeyBuffer) Len() int {
	return len(b.keys)
}

// Cap returns the buffer capacity
func (b *KeyBuffer) Cap() int {
	return b.capacity
}

// Reset empties the buffer
func (b *KeyBuffer) Reset() {
	b.keys = b.keys[:0]
}

// String returns the buffered keys in entry order
func (b *KeyBuffer) String() string {
	return string(b.keys)
}

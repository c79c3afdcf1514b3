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
	"errors"
	"fmt"
	"time"
)

// DefaultTerminator is the key that submits the keypad buffer
const DefaultTerminator = '#'

// Config holds the timing and capacity parameters shared by the monitors
type Config struct {
	// DuplicateWindow is how long a re-presented identical card is suppressed
	DuplicateWindow time.Duration
	// IdleTimeout clears a partially entered keypad sequence
	IdleTimeout time.Duration
	// KeyFlash is the backlight-off debounce window after a buffered key
	KeyFlash time.Duration
	// SubmitFlash is the backlight-off window after the terminator key
	SubmitFlash time.Duration
	// Capacity is the maximum number of buffered keys
	Capacity int
	// Terminator flushes the buffer as a KEYS line
	Terminator byte
}

// DefaultConfig returns the reference station timings
func DefaultConfig() *Config {
	return &Config{
		DuplicateWindow: 1 * time.Second,
		IdleTimeout:     10 * time.Second,
		KeyFlash:        50 * time.Millisecond,
		SubmitFlash:     250 * time.Millisecond,
		Capacity:        20,
		Terminator:      DefaultTerminator,
	}
}

// Config validation errors
var (
	ErrInvalidCapacity = errors.New("key buffer capacity must be positive")
	ErrInvalidDuration = errors.New("duration out of range")
)

// maxWindow keeps every window comfortably inside the uint32 millisecond clock
const maxWindow = time.Duration(1<<31) * time.Millisecond

// Validate checks that the configuration can be used by the monitors
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, c.Capacity)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"duplicate window", c.DuplicateWindow},
		{"idle timeout", c.IdleTimeout},
		{"key flash", c.KeyFlash},
		{"submit flash", c.SubmitFlash},
	}
	for _, d := range durations {
		if d.value < 0 || d.value >= maxWindow {
			return fmt.Errorf("%w: %s %v", ErrInvalidDuration, d.name, d.value)
		}
	}

	return nil
}

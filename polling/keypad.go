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
	"context"

	"github.com/ZaparooProject/go-tapkey/status"
	"github.com/rs/zerolog/log"
)

// flash tracks a backlight-off window. While it runs the keypad is not
// read, which doubles as key debounce.
type flash struct {
	start    uint32
	duration uint32
	active   bool
}

// KeypadState is a snapshot of a keypad monitor's counters and buffer
type KeypadState struct {
	Buffer    string
	LastKeyAt uint32
	Submitted uint64
	Dropped   uint64
	TimedOut  uint64
	Flashing  bool
}

// KeypadMonitor buffers keypad entries and reports them as a KEYS line when
// the terminator key is pressed. A partial entry is discarded after the idle
// timeout.
//
// Keys pressed while the buffer is full are dropped without output.
type KeypadMonitor struct {
	source    KeySource
	backlight Backlight
	sink      Sink
	clock     Clock
	config    *Config
	buffer    *KeyBuffer
	flash     flash
	lastKeyAt uint32
	submitted uint64
	dropped   uint64
	timedOut  uint64
}

// NewKeypadMonitor creates a keypad monitor. A nil backlight is replaced by
// NoBacklight, a nil clock by a MonotonicClock and a nil config by
// DefaultConfig.
func NewKeypadMonitor(
	source KeySource,
	backlight Backlight,
	sink Sink,
	clock Clock,
	config *Config,
) *KeypadMonitor {
	if source == nil {
		source = NoKeys{}
	}
	if backlight == nil {
		backlight = NoBacklight{}
	}
	if clock == nil {
		clock = NewMonotonicClock()
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &KeypadMonitor{
		source:    source,
		backlight: backlight,
		sink:      sink,
		clock:     clock,
		config:    config,
		buffer:    NewKeyBuffer(config.Capacity),
	}
}

// Source returns the keypad the monitor polls
func (m *KeypadMonitor) Source() KeySource {
	return m.source
}

// Backlight returns the monitor's activity indicator
func (m *KeypadMonitor) Backlight() Backlight {
	return m.backlight
}

// State returns a snapshot of the monitor
func (m *KeypadMonitor) State() KeypadState {
	return KeypadState{
		Buffer:    m.buffer.String(),
		LastKeyAt: m.lastKeyAt,
		Submitted: m.submitted,
		Dropped:   m.dropped,
		TimedOut:  m.timedOut,
		Flashing:  m.flash.active,
	}
}

// Poll runs one keypad cycle. It never blocks on timing: backlight flashes
// are tracked against the clock and finished by a later Poll.
func (m *KeypadMonitor) Poll(ctx context.Context) {
	now := m.clock.NowMillis()

	if m.buffer.Len() > 0 && Elapsed(now, m.lastKeyAt) > millis(m.config.IdleTimeout) {
		log.Debug().Int("keys", m.buffer.Len()).Msg("keypad entry timed out")
		m.buffer.Reset()
		m.timedOut++
	}

	if m.flash.active {
		if Elapsed(now, m.flash.start) < m.flash.duration {
			return
		}
		m.endFlash()
	}

	key, ok := m.source.PressedKey(ctx)
	if !ok {
		return
	}
	now = m.clock.NowMillis()

	switch {
	case key == m.config.Terminator:
		m.backlight.SetOn(false)
		m.sink.WriteLine(status.TypeKeys, m.buffer.String())
		m.buffer.Reset()
		m.submitted++
		m.startFlash(now, millis(m.config.SubmitFlash))
	case m.buffer.Full():
		m.dropped++
		log.Debug().
			Str("key", string(key)).
			Int("capacity", m.buffer.Cap()).
			Msg("keypad buffer full, key dropped")
	default:
		m.backlight.SetOn(false)
		m.buffer.Append(key)
		m.startFlash(now, millis(m.config.KeyFlash))
	}

	m.lastKeyAt = now
}

func (m *KeypadMonitor) startFlash(now, duration uint32) {
	if duration == 0 {
		m.backlight.SetOn(true)
		return
	}
	m.flash = flash{start: now, duration: duration, active: true}
}

func (m *KeypadMonitor) endFlash() {
	m.flash.active = false
	m.backlight.SetOn(true)
}

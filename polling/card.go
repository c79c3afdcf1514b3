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

// CardMonitor reports newly presented cards as NFC lines, suppressing a card
// that is presented again within the duplicate window
type CardMonitor struct {
	source CardSource
	sink   Sink
	clock  Clock
	config *Config
	state  ScanState
}

// NewCardMonitor creates a card monitor. A nil clock uses a MonotonicClock
// and a nil config uses DefaultConfig.
func NewCardMonitor(source CardSource, sink Sink, clock Clock, config *Config) *CardMonitor {
	if source == nil {
		source = NoCards{}
	}
	if clock == nil {
		clock = NewMonotonicClock()
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &CardMonitor{
		source: source,
		sink:   sink,
		clock:  clock,
		config: config,
	}
}

// Source returns the card reader the monitor polls
func (m *CardMonitor) Source() CardSource {
	return m.source
}

// State returns a copy of the scan state
func (m *CardMonitor) State() ScanState {
	return m.state.clone()
}

// Poll runs one detection cycle. It never fails: an absent card, an
// unreadable card and a duplicate all end the cycle quietly and the next
// Poll tries again.
func (m *CardMonitor) Poll(ctx context.Context) {
	if !m.source.HasNewCard(ctx) {
		return
	}

	uid, err := m.source.ReadSerial(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("card present but unreadable")
		return
	}
	if len(uid) == 0 {
		log.Debug().Msg("card reported an empty identifier")
		return
	}

	now := m.clock.NowMillis()
	if m.state.IsDuplicate(uid, now, millis(m.config.DuplicateWindow)) {
		m.state.Suppressed++
		log.Debug().
			Str("uid", status.HexUID(uid)).
			Uint32("since_ms", Elapsed(now, m.state.LastSeenAt)).
			Msg("duplicate card suppressed")
		m.halt(ctx)
		return
	}

	m.state.LastSeenAt = now
	m.sink.WriteLine(status.TypeNFC, status.HexUID(uid))
	m.halt(ctx)
	m.state.LastUID = append(m.state.LastUID[:0], uid...)
	m.state.Accepted++
}

func (m *CardMonitor) halt(ctx context.Context) {
	if err := m.source.Halt(ctx); err != nil {
		log.Debug().Err(err).Msg("card halt failed")
	}
}

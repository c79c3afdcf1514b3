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

package tapkey

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-tapkey/polling"
	"github.com/ZaparooProject/go-tapkey/status"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the pause between loop iterations
const DefaultInterval = 5 * time.Millisecond

// Station errors
var (
	ErrNoSink        = errors.New("station needs a status sink")
	ErrInvalidOption = errors.New("invalid station option")
)

// Station owns the two monitors and drives them from a single loop.
//
// Thread Safety: Step and Run must be called from one goroutine. The
// counters may be read from any goroutine.
type Station struct {
	sink       polling.Sink
	cards      *polling.CardMonitor
	keys       *polling.KeypadMonitor
	interval   time.Duration
	iterations atomic.Uint64
	recovered  atomic.Uint64
}

// New creates a station. A nil monitor disables that peripheral.
func New(sink polling.Sink, cards *polling.CardMonitor, keys *polling.KeypadMonitor, opts ...Option) (*Station, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	if cards == nil {
		cards = polling.NewCardMonitor(polling.NoCards{}, sink, nil, nil)
	}
	if keys == nil {
		keys = polling.NewKeypadMonitor(polling.NoKeys{}, nil, sink, nil, nil)
	}

	s := &Station{
		sink:     sink,
		cards:    cards,
		keys:     keys,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start announces each enabled peripheral with a DEBUG line and switches the
// keypad backlight on
func (s *Station) Start() {
	if src := s.cards.Source(); polling.Enabled(src) {
		s.sink.WriteLine(status.TypeDebug, ready("card reader", src))
	}
	if src := s.keys.Source(); polling.Enabled(src) {
		s.sink.WriteLine(status.TypeDebug, ready("keypad", src))
		s.keys.Backlight().SetOn(true)
	}
	log.Info().
		Bool("cards", polling.Enabled(s.cards.Source())).
		Bool("keypad", polling.Enabled(s.keys.Source())).
		Dur("interval", s.interval).
		Msg("station started")
}

func ready(name string, src any) string {
	if d, ok := src.(polling.Describer); ok {
		if desc := d.Describe(); desc != "" {
			return fmt.Sprintf("%s ready: %s", name, desc)
		}
	}
	return name + " ready"
}

// Step polls the card reader, then the keypad. A panic in either is
// recovered and logged so the loop keeps running.
func (s *Station) Step(ctx context.Context) {
	s.poll("card reader", func() { s.cards.Poll(ctx) })
	s.poll("keypad", func() { s.keys.Poll(ctx) })
	s.iterations.Add(1)
}

func (s *Station) poll(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.recovered.Add(1)
			log.Error().Str("peripheral", name).Interface("panic", r).Msg("recovered from panic while polling")
		}
	}()
	fn()
}

// Run steps until ctx is done and returns ctx.Err()
func (s *Station) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if err := ctx.Err(); err != nil {
			log.Debug().Uint64("iterations", s.Iterations()).Msg("station stopped")
			return err
		}

		s.Step(ctx)

		if tick != nil {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
	}
}

// Iterations returns the number of completed steps
func (s *Station) Iterations() uint64 {
	return s.iterations.Load()
}

// Recovered returns the number of panics recovered while polling
func (s *Station) Recovered() uint64 {
	return s.recovered.Load()
}

// Cards returns the card monitor
func (s *Station) Cards() *polling.CardMonitor {
	return s.cards
}

// Keys returns the keypad monitor
func (s *Station) Keys() *polling.KeypadMonitor {
	return s.keys
}

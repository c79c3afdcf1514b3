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

package hardware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-tapkey/polling"
	"periph.io/x/conn/v3/gpio"
)

// DefaultDebounce is how long a key must read pressed before it is reported
const DefaultDebounce = 10 * time.Millisecond

// DefaultLayout is the common 4x3 telephone keypad
var DefaultLayout = []string{"123", "456", "789", "*0#"}

// ErrLayoutMismatch is returned when the layout does not match the pins
var ErrLayoutMismatch = errors.New("keypad layout does not match pins")

// Keypad scans a matrix keypad. Rows are driven low one at a time and the
// columns, pulled up, read low where a key closes the circuit. A key is
// reported once per press after it has read stable for the debounce
// interval; holding it does not repeat.
type Keypad struct {
	now       func() time.Time
	heldSince time.Time
	rows      []gpio.PinOut
	cols      []gpio.PinIn
	layout    []string
	debounce  time.Duration
	held      byte
	reported  bool
}

// NewKeypad configures the pins and returns an idle keypad
func NewKeypad(rows []gpio.PinOut, cols []gpio.PinIn, layout []string, debounce time.Duration) (*Keypad, error) {
	if len(rows) == 0 || len(cols) == 0 {
		return nil, fmt.Errorf("%w: need at least one row and one column", ErrLayoutMismatch)
	}
	if len(layout) != len(rows) {
		return nil, fmt.Errorf("%w: %d layout rows for %d row pins", ErrLayoutMismatch, len(layout), len(rows))
	}
	for i, row := range layout {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("%w: layout row %d has %d keys for %d column pins",
				ErrLayoutMismatch, i, len(row), len(cols))
		}
	}

	for _, c := range cols {
		if err := c.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure column %s: %w", c, err)
		}
	}
	for _, r := range rows {
		if err := r.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("failed to configure row %s: %w", r, err)
		}
	}

	return &Keypad{
		rows:     rows,
		cols:     cols,
		layout:   layout,
		debounce: debounce,
		now:      time.Now,
	}, nil
}

// OpenKeypad resolves the row and column pins by name
func OpenKeypad(rowPins, colPins, layout []string, debounce time.Duration) (*Keypad, error) {
	rows := make([]gpio.PinOut, 0, len(rowPins))
	for _, name := range rowPins {
		p, err := pinByName(name)
		if err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}
	cols := make([]gpio.PinIn, 0, len(colPins))
	for _, name := range colPins {
		p, err := pinByName(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, p)
	}
	return NewKeypad(rows, cols, layout, debounce)
}

// PressedKey scans the matrix once
func (k *Keypad) PressedKey(context.Context) (byte, bool) {
	key, down := k.scan()
	if !down {
		k.held = 0
		k.reported = false
		return 0, false
	}

	now := k.now()
	if key != k.held {
		k.held = key
		k.heldSince = now
		k.reported = false
	}
	if k.reported || now.Sub(k.heldSince) < k.debounce {
		return 0, false
	}
	k.reported = true
	return key, true
}

// scan returns the first closed key in row-major order
func (k *Keypad) scan() (byte, bool) {
	for i, row := range k.rows {
		if err := row.Out(gpio.Low); err != nil {
			continue
		}
		for j, col := range k.cols {
			if col.Read() == gpio.Low {
				_ = row.Out(gpio.High)
				return k.layout[i][j], true
			}
		}
		_ = row.Out(gpio.High)
	}
	return 0, false
}

// Describe reports the matrix size
func (k *Keypad) Describe() string {
	return fmt.Sprintf("keypad %dx%d", len(k.rows), len(k.cols))
}

// Halt releases the row drivers
func (k *Keypad) Halt() error {
	var errs []error
	for _, r := range k.rows {
		if err := r.Out(gpio.High); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ polling.KeySource = (*Keypad)(nil)
	_ polling.Describer = (*Keypad)(nil)
)

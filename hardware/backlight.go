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
	"github.com/ZaparooProject/go-tapkey/polling"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
)

// Backlight drives the keypad backlight from a GPIO output
type Backlight struct {
	pin       gpio.PinOut
	activeLow bool
	on        bool
}

// NewBacklight wraps pin; activeLow inverts the output level
func NewBacklight(pin gpio.PinOut, activeLow bool) *Backlight {
	return &Backlight{pin: pin, activeLow: activeLow}
}

// OpenBacklight resolves the pin by name
func OpenBacklight(name string, activeLow bool) (*Backlight, error) {
	p, err := pinByName(name)
	if err != nil {
		return nil, err
	}
	return NewBacklight(p, activeLow), nil
}

// SetOn switches the backlight. GPIO errors are logged, not returned.
func (b *Backlight) SetOn(on bool) {
	level := gpio.Level(on != b.activeLow)
	if err := b.pin.Out(level); err != nil {
		log.Debug().Err(err).Str("pin", b.pin.String()).Msg("backlight write failed")
		return
	}
	b.on = on
}

// IsOn reports the last level written successfully
func (b *Backlight) IsOn() bool {
	return b.on
}

var _ polling.Backlight = (*Backlight)(nil)

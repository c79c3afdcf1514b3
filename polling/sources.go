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
	"errors"

	"github.com/ZaparooProject/go-tapkey/status"
)

// ErrNoCard is returned by ReadSerial when no card is selected
var ErrNoCard = errors.New("no card selected")

// CardSource is a contactless card reader
type CardSource interface {
	// HasNewCard reports whether a card has entered the field
	HasNewCard(ctx context.Context) bool
	// ReadSerial selects the card found by HasNewCard and returns its UID
	ReadSerial(ctx context.Context) ([]byte, error)
	// Halt puts the selected card to sleep so it is not re-detected
	// immediately while it stays in the field
	Halt(ctx context.Context) error
}

// KeySource is a keypad polled without blocking
type KeySource interface {
	// PressedKey returns a newly pressed key, if any
	PressedKey(ctx context.Context) (byte, bool)
}

// Backlight is the keypad activity indicator
type Backlight interface {
	SetOn(on bool)
}

// Sink receives formatted status lines
type Sink interface {
	WriteLine(t status.Type, value string)
}

// Describer is implemented by peripherals that can name themselves in the
// startup DEBUG line
type Describer interface {
	Describe() string
}

// NoCards stands in for a disabled card reader
type NoCards struct{}

// HasNewCard never reports a card
func (NoCards) HasNewCard(context.Context) bool { return false }

// ReadSerial always fails
func (NoCards) ReadSerial(context.Context) ([]byte, error) { return nil, ErrNoCard }

// Halt does nothing
func (NoCards) Halt(context.Context) error { return nil }

// NoKeys stands in for a disabled keypad
type NoKeys struct{}

// PressedKey never reports a key
func (NoKeys) PressedKey(context.Context) (byte, bool) { return 0, false }

// NoBacklight stands in for a missing indicator
type NoBacklight struct{}

// SetOn does nothing
func (NoBacklight) SetOn(bool) {}

// Enabled reports whether src is a real peripheral rather than one of the
// no-op stand-ins
func Enabled(src any) bool {
	switch src.(type) {
	case nil, NoCards, *NoCards, NoKeys, *NoKeys:
		return false
	default:
		return true
	}
}

var (
	_ CardSource = NoCards{}
	_ KeySource  = NoKeys{}
	_ Backlight  = NoBacklight{}
)

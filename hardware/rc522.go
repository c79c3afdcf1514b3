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
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/mfrc522"
)

// DefaultRC522Timeout bounds how long one HasNewCard call waits for a card
const DefaultRC522Timeout = 20 * time.Millisecond

// ErrPinNotFound is returned when a GPIO name is not known to the host
var ErrPinNotFound = errors.New("GPIO pin not found")

// uidReader is the part of mfrc522.Dev used by RC522Reader
type uidReader interface {
	ReadUID(timeout time.Duration) ([]byte, error)
	Halt() error
	String() string
}

// RC522Reader is a CardSource backed by an MFRC522 on SPI
type RC522Reader struct {
	dev     uidReader
	close   func() error
	uid     []byte
	timeout time.Duration
}

// OpenRC522 opens the SPI port and the reset and IRQ pins by name
func OpenRC522(spiPort, resetPin, irqPin string, timeout time.Duration) (*RC522Reader, error) {
	reset, err := pinByName(resetPin)
	if err != nil {
		return nil, err
	}
	irq, err := pinByName(irqPin)
	if err != nil {
		return nil, err
	}

	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", spiPort, err)
	}

	dev, err := mfrc522.NewSPI(port, reset, irq)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to initialize MFRC522 on %s: %w", spiPort, err)
	}

	r := newRC522Reader(dev, timeout)
	r.close = func() error {
		haltErr := dev.Halt()
		if err := port.Close(); err != nil {
			return fmt.Errorf("failed to close SPI port %s: %w", spiPort, err)
		}
		return haltErr
	}
	return r, nil
}

func newRC522Reader(dev uidReader, timeout time.Duration) *RC522Reader {
	if timeout <= 0 {
		timeout = DefaultRC522Timeout
	}
	return &RC522Reader{dev: dev, timeout: timeout}
}

// HasNewCard waits up to the configured timeout for a card to answer
func (r *RC522Reader) HasNewCard(context.Context) bool {
	uid, err := r.dev.ReadUID(r.timeout)
	if err != nil || len(uid) == 0 {
		// the driver reports an empty field as a timeout error
		log.Trace().Err(err).Msg("no MFRC522 card")
		r.uid = nil
		return false
	}
	r.uid = uid
	return true
}

// ReadSerial returns the UID read by HasNewCard
func (r *RC522Reader) ReadSerial(context.Context) ([]byte, error) {
	if r.uid == nil {
		return nil, polling.ErrNoCard
	}
	uid := make([]byte, len(r.uid))
	copy(uid, r.uid)
	return uid, nil
}

// Halt puts the card to sleep
func (r *RC522Reader) Halt(context.Context) error {
	r.uid = nil
	if err := r.dev.Halt(); err != nil {
		return fmt.Errorf("MFRC522 halt failed: %w", err)
	}
	return nil
}

// Describe names the reader
func (r *RC522Reader) Describe() string {
	return "MFRC522 reader " + r.dev.String()
}

// Close halts the chip and releases the SPI port
func (r *RC522Reader) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}
	return p, nil
}

var (
	_ polling.CardSource = (*RC522Reader)(nil)
	_ polling.Describer  = (*RC522Reader)(nil)
)

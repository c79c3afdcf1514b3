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

	"github.com/ZaparooProject/go-tapkey/detection"
	"github.com/ZaparooProject/go-tapkey/pn532"
	"github.com/ZaparooProject/go-tapkey/polling"
	"github.com/ZaparooProject/go-tapkey/transport/i2c"
	"github.com/ZaparooProject/go-tapkey/transport/uart"
	"github.com/rs/zerolog/log"
)

// Card reader drivers
const (
	DriverPN532UART = "pn532-uart"
	DriverPN532I2C  = "pn532-i2c"
	DriverRC522     = "rc522"
)

// ErrUnknownDriver is returned for an unsupported card reader driver name
var ErrUnknownDriver = errors.New("unknown card reader driver")

// PN532Reader is a CardSource backed by a PN532 controller
type PN532Reader struct {
	dev    *pn532.Device
	target *pn532.Target
}

// NewPN532Reader wraps an initialized device
func NewPN532Reader(dev *pn532.Device) *PN532Reader {
	return &PN532Reader{dev: dev}
}

// PN532Config selects and addresses a PN532
type PN532Config struct {
	// Detect filters the ports and buses probed when Device is empty
	Detect *detection.Options
	Driver string
	// Device is the serial port or I2C bus. Empty probes every candidate.
	Device string
	// Baud only applies to the UART driver
	Baud    int
	Timeout time.Duration
}

// OpenPN532 opens the transport named by cfg.Driver on cfg.Device, then
// initializes the controller. With an empty Device the first port or bus
// that answers a firmware version request is used.
func OpenPN532(ctx context.Context, cfg PN532Config) (*PN532Reader, error) {
	open := func(name string) (pn532.Transport, error) {
		return openTransport(cfg.Driver, name, cfg.Baud)
	}

	if cfg.Device == "" {
		names, err := candidates(cfg.Driver, cfg.Detect)
		if err != nil {
			return nil, err
		}
		dev, _, err := probe(ctx, names, open, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return NewPN532Reader(dev), nil
	}

	t, err := open(cfg.Device)
	if err != nil {
		return nil, err
	}

	var opts []pn532.Option
	if cfg.Timeout > 0 {
		opts = append(opts, pn532.WithTimeout(cfg.Timeout))
	}

	dev, err := pn532.New(t, opts...)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	if err := dev.Init(ctx); err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("failed to initialize PN532 on %s: %w", cfg.Device, err)
	}
	return NewPN532Reader(dev), nil
}

func openTransport(driver, device string, baudRate int) (pn532.Transport, error) {
	switch driver {
	case DriverPN532UART:
		t, err := uart.New(device, baudRate)
		if err != nil {
			return nil, err
		}
		return t, nil
	case DriverPN532I2C:
		t, err := i2c.New(device)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// HasNewCard lists passive targets and remembers the one found
func (r *PN532Reader) HasNewCard(ctx context.Context) bool {
	target, err := r.dev.DetectTag(ctx)
	if err != nil {
		if !errors.Is(err, pn532.ErrNoTagDetected) && ctx.Err() == nil {
			log.Debug().Err(err).Msg("PN532 target detection failed")
		}
		r.target = nil
		return false
	}
	r.target = target
	return true
}

// ReadSerial returns the UID of the target found by HasNewCard
func (r *PN532Reader) ReadSerial(context.Context) ([]byte, error) {
	if r.target == nil {
		return nil, polling.ErrNoCard
	}
	uid := make([]byte, len(r.target.UID))
	copy(uid, r.target.UID)
	return uid, nil
}

// Halt releases the current target
func (r *PN532Reader) Halt(ctx context.Context) error {
	if r.target == nil {
		return nil
	}
	tg := r.target.Number
	r.target = nil
	if err := r.dev.Release(ctx, tg); err != nil {
		return fmt.Errorf("failed to release target %d: %w", tg, err)
	}
	return nil
}

// Describe names the controller and its firmware
func (r *PN532Reader) Describe() string {
	fw, err := r.dev.FirmwareVersion()
	if err != nil {
		return "PN532 reader"
	}
	return fmt.Sprintf("PN532 reader, firmware %s via %s", fw, r.dev.Transport().Type())
}

// Close closes the device transport
func (r *PN532Reader) Close() error {
	return r.dev.Close()
}

var (
	_ polling.CardSource = (*PN532Reader)(nil)
	_ polling.Describer  = (*PN532Reader)(nil)
)

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

// Package i2c provides I2C transport implementation for PN532
package i2c

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-tapkey/internal/frame"
	"github.com/ZaparooProject/go-tapkey/internal/transport"
	"github.com/ZaparooProject/go-tapkey/pn532"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// Address is the PN532 7-bit I2C address
	Address = 0x24

	pn532Ready = 0x01

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	defaultTimeout = time.Second
	ackTimeout     = 100 * time.Millisecond
	readyPoll      = time.Millisecond

	// ready byte + the largest normal information frame
	maxRead = 1 + frame.MaxDataLength + 7
)

// Transport implements the pn532.Transport interface for I2C communication
type Transport struct {
	dev     *i2c.Dev
	closer  io.Closer
	busName string
	timeout time.Duration
	mu      sync.Mutex
}

// New opens busName (for example "/dev/i2c-1" or "1"; empty selects the
// first bus) and addresses the PN532 on it
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	if err := bus.SetSpeed(maxClockFreq); err != nil {
		log.Debug().Err(err).Str("bus", busName).Msg("keeping default I2C bus speed")
	}

	return newTransport(bus, bus, busName), nil
}

func newTransport(bus i2c.Bus, closer io.Closer, busName string) *Transport {
	return &Transport{
		dev:     &i2c.Dev{Addr: Address, Bus: bus},
		closer:  closer,
		busName: busName,
		timeout: defaultTimeout,
	}
}

// SendCommand sends a command to the PN532 and waits for response
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil, pn532.NewTransportError("SendCommand", t.busName, pn532.ErrTransportClosed,
			pn532.ErrorTypePermanent)
	}

	if err := t.sendFrame(cmd, args); err != nil {
		return nil, err
	}
	if err := t.waitAck(ctx); err != nil {
		return nil, err
	}
	return t.receiveFrame(ctx)
}

// sendFrame sends a frame to the PN532 via I2C
func (t *Transport) sendFrame(cmd byte, args []byte) error {
	frm, err := frame.Build(cmd, args)
	if err != nil {
		return pn532.NewDataTooLargeError("sendFrame", t.busName)
	}

	if err := t.dev.Tx(frm, nil); err != nil {
		return pn532.NewTransportError("sendFrame", t.busName,
			fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}
	return nil
}

// read reads n bytes and reports whether the PN532 had data ready. The
// returned slice excludes the ready byte.
func (t *Transport) read(op string, n int) ([]byte, bool, error) {
	buf := make([]byte, n+1)
	if err := t.dev.Tx(nil, buf); err != nil {
		return nil, false, pn532.NewTransportError(op, t.busName,
			fmt.Errorf("%w: %w", pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
	}
	if buf[0] != pn532Ready {
		return nil, false, nil
	}
	return buf[1:], true, nil
}

// waitAck waits for an ACK frame from the PN532
func (t *Transport) waitAck(ctx context.Context) error {
	_, err := transport.TimeoutRetry(ctx, ackTimeout, readyPoll, func() (struct{}, bool, error) {
		buf, ready, err := t.read("waitAck", len(frame.AckFrame))
		if err != nil || !ready {
			return struct{}{}, true, err
		}

		_, err = frame.FindAck(buf)
		switch {
		case err == nil:
			return struct{}{}, false, nil
		case errors.Is(err, frame.ErrNack):
			return struct{}{}, false, pn532.NewTransportError("waitAck", t.busName,
				pn532.ErrNACKReceived, pn532.ErrorTypeTransient)
		default:
			return struct{}{}, false, pn532.NewTransportError("waitAck", t.busName,
				fmt.Errorf("%w: %w", pn532.ErrFrameCorrupted, err), pn532.ErrorTypeTransient)
		}
	})
	if errors.Is(err, transport.ErrDeadline) {
		return pn532.NewNoACKError("waitAck", t.busName)
	}
	return err
}

// receiveFrame reads a response frame, asking for a resend with NACK when it
// arrives corrupted
func (t *Transport) receiveFrame(ctx context.Context) ([]byte, error) {
	payload, err := transport.TimeoutRetry(ctx, t.timeout, readyPoll, func() ([]byte, bool, error) {
		buf, ready, err := t.read("receiveFrame", maxRead-1)
		if err != nil || !ready {
			return nil, true, err
		}

		payload, _, err := frame.Parse(buf)
		if err != nil {
			log.Debug().Err(err).Str("bus", t.busName).Msg("corrupted I2C frame, sending NACK")
			if err := t.dev.Tx(frame.NackFrame, nil); err != nil {
				return nil, false, pn532.NewTransportError("sendNack", t.busName,
					fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
			}
			return nil, true, nil
		}

		if err := t.dev.Tx(frame.AckFrame, nil); err != nil {
			return nil, false, pn532.NewTransportError("sendAck", t.busName,
				fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
		}
		return payload, false, nil
	})
	if errors.Is(err, transport.ErrDeadline) {
		return nil, pn532.NewTimeoutError("receiveFrame", t.busName)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// SetTimeout sets the read timeout for the transport
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", pn532.ErrInvalidParameter)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close releases the I2C bus
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return nil
	}
	t.dev = nil
	if t.closer == nil {
		return nil
	}
	if err := t.closer.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus %s: %w", t.busName, err)
	}
	return nil
}

// Type returns the transport type
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportI2C
}

// String returns the bus name
func (t *Transport) String() string {
	return t.busName
}

// Ensure Transport implements pn532.Transport
var _ pn532.Transport = (*Transport)(nil)

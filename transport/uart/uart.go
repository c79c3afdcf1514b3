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

// Package uart provides the PN532 HSU (high speed UART) transport
package uart

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
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the PN532 HSU default speed
	DefaultBaudRate = 115200

	defaultTimeout = time.Second
	readPoll       = 10 * time.Millisecond
	ackTimeout     = 100 * time.Millisecond
)

// Transport implements pn532.Transport over a serial port
type Transport struct {
	port     io.ReadWriteCloser
	portName string
	buf      []byte
	timeout  time.Duration
	mu       sync.Mutex
	awake    bool
}

// New opens portName at baudRate (8N1). A baudRate of 0 selects
// DefaultBaudRate.
func New(portName string, baudRate int) (*Transport, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readPoll); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return newTransport(port, portName), nil
}

func newTransport(port io.ReadWriteCloser, portName string) *Transport {
	return &Transport{
		port:     port,
		portName: portName,
		timeout:  defaultTimeout,
		buf:      make([]byte, 0, 64),
	}
}

// SendCommand writes a command frame, waits for the ACK and returns the
// response payload
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, pn532.NewTransportError("SendCommand", t.portName, pn532.ErrTransportClosed,
			pn532.ErrorTypePermanent)
	}

	if err := t.writeCommand(cmd, args); err != nil {
		return nil, err
	}
	if err := t.waitAck(ctx); err != nil {
		return nil, err
	}
	return t.readResponse(ctx)
}

func (t *Transport) writeCommand(cmd byte, args []byte) error {
	frm, err := frame.Build(cmd, args)
	if err != nil {
		return pn532.NewDataTooLargeError("sendFrame", t.portName)
	}

	if !t.awake {
		frm = append(append([]byte{}, frame.WakeUp...), frm...)
	}

	// anything left over belongs to an abandoned exchange
	t.buf = t.buf[:0]

	n, err := t.port.Write(frm)
	if err != nil {
		return pn532.NewTransportError("sendFrame", t.portName,
			fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err), pn532.ErrorTypeTransient)
	}
	if n != len(frm) {
		return pn532.NewTransportError("sendFrame", t.portName,
			fmt.Errorf("%w: %w", pn532.ErrTransportWrite, io.ErrShortWrite), pn532.ErrorTypeTransient)
	}

	t.awake = true
	return nil
}

func (t *Transport) waitAck(ctx context.Context) error {
	_, err := transport.TimeoutRetry(ctx, ackTimeout, 0, func() (struct{}, bool, error) {
		n, err := frame.FindAck(t.buf)
		switch {
		case err == nil:
			t.buf = t.buf[n:]
			return struct{}{}, false, nil
		case errors.Is(err, frame.ErrIncomplete):
			return struct{}{}, true, t.fill()
		case errors.Is(err, frame.ErrNack):
			return struct{}{}, false, pn532.NewTransportError("waitAck", t.portName,
				pn532.ErrNACKReceived, pn532.ErrorTypeTransient)
		default:
			return struct{}{}, false, pn532.NewTransportError("waitAck", t.portName, err,
				pn532.ErrorTypeTransient)
		}
	})
	if errors.Is(err, transport.ErrDeadline) {
		t.awake = false
		return pn532.NewNoACKError("waitAck", t.portName)
	}
	return err
}

func (t *Transport) readResponse(ctx context.Context) ([]byte, error) {
	payload, err := transport.TimeoutRetry(ctx, t.timeout, 0, func() ([]byte, bool, error) {
		payload, n, err := frame.Parse(t.buf)
		switch {
		case err == nil:
			t.buf = t.buf[n:]
			return payload, false, nil
		case errors.Is(err, frame.ErrIncomplete):
			return nil, true, t.fill()
		default:
			log.Debug().Err(err).Str("port", t.portName).Msg("discarding corrupted frame")
			t.buf = t.buf[:0]
			_, _ = t.port.Write(frame.NackFrame)
			return nil, true, nil
		}
	})
	if errors.Is(err, transport.ErrDeadline) {
		return nil, pn532.NewTimeoutError("receiveFrame", t.portName)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// fill reads whatever the port has within one read poll interval
func (t *Transport) fill() error {
	var chunk [64]byte
	n, err := t.port.Read(chunk[:])
	if err != nil {
		return pn532.NewTransportError("read", t.portName,
			fmt.Errorf("%w: %w", pn532.ErrTransportRead, err), pn532.ErrorTypeTransient)
	}
	t.buf = append(t.buf, chunk[:n]...)
	return nil
}

// SetTimeout sets the response timeout
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", pn532.ErrInvalidParameter)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close closes the serial port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", t.portName, err)
	}
	return nil
}

// Type returns the transport type
func (*Transport) Type() pn532.TransportType {
	return pn532.TransportUART
}

// String returns the port name
func (t *Transport) String() string {
	return t.portName
}

// Ensure Transport implements pn532.Transport
var _ pn532.Transport = (*Transport)(nil)

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

package status

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultBaudRate is the status link speed used when none is configured
const DefaultBaudRate = 9600

// drainCloser is the part of serial.Port a SerialSink needs
type drainCloser interface {
	io.WriteCloser
	Drain() error
}

// SerialSink is a Writer bound to a serial port
type SerialSink struct {
	*Writer
	port drainCloser
	name string
}

// OpenSerial opens portName at the given baud rate (8N1) and returns a sink
// writing status lines to it.
func OpenSerial(portName string, baudRate int) (*SerialSink, error) {
	if portName == "" {
		return nil, errors.New("status port name is empty")
	}
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open status port %s: %w", portName, err)
	}

	return newSerialSink(port, portName), nil
}

func newSerialSink(port drainCloser, portName string) *SerialSink {
	return &SerialSink{
		Writer: NewWriter(port),
		port:   port,
		name:   portName,
	}
}

// Name returns the port the sink writes to
func (s *SerialSink) Name() string {
	return s.name
}

// Close flushes pending output and closes the port
func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.port.Drain(); err != nil {
		log.Debug().Err(err).Str("port", s.name).Msg("status port not drained before close")
	}
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("failed to close status port %s: %w", s.name, err)
	}
	return nil
}

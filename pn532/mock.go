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

package pn532

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockTransport is an in-memory Transport for tests. Responses are keyed by
// command code and must start with the response code (cmd+1).
type MockTransport struct {
	responses map[byte][]byte
	errors    map[byte]error
	calls     map[byte]int
	lastArgs  map[byte][]byte
	timeout   time.Duration
	delay     time.Duration
	mu        sync.Mutex
	closed    bool
}

// NewMockTransport creates a mock that answers GetFirmwareVersion,
// SAMConfiguration and RFConfiguration like a PN532 v1.6.
func NewMockTransport() *MockTransport {
	m := &MockTransport{
		responses: make(map[byte][]byte),
		errors:    make(map[byte]error),
		calls:     make(map[byte]int),
		lastArgs:  make(map[byte][]byte),
		timeout:   time.Second,
	}
	m.responses[cmdGetFirmwareVersion] = []byte{cmdGetFirmwareVersion + 1, 0x32, 0x01, 0x06, 0x07}
	m.responses[cmdSamConfiguration] = []byte{cmdSamConfiguration + 1}
	m.responses[cmdRFConfiguration] = []byte{cmdRFConfiguration + 1}
	m.responses[cmdInRelease] = []byte{cmdInRelease + 1, statusOK}
	m.responses[cmdInListPassiveTarget] = []byte{cmdInListPassiveTarget + 1, 0x00}
	return m
}

// SendCommand returns the configured error or response for cmd
func (m *MockTransport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	m.mu.Lock()
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrTransportClosed
	}

	m.calls[cmd]++
	m.lastArgs[cmd] = append([]byte(nil), args...)

	if err, ok := m.errors[cmd]; ok {
		return nil, err
	}
	if resp, ok := m.responses[cmd]; ok {
		return append([]byte(nil), resp...), nil
	}
	return nil, fmt.Errorf("%w: no mock response for command %02X", ErrUnexpectedResponse, cmd)
}

// SetResponse sets the reply for cmd and clears any error
func (m *MockTransport) SetResponse(cmd byte, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = resp
	delete(m.errors, cmd)
}

// SetError makes cmd fail with err
func (m *MockTransport) SetError(cmd byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[cmd] = err
}

// SetDelay delays every reply
func (m *MockTransport) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// GetCallCount returns how many times cmd was sent
func (m *MockTransport) GetCallCount(cmd byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[cmd]
}

// LastArgs returns the arguments of the most recent cmd
func (m *MockTransport) LastArgs(cmd byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastArgs[cmd]
}

// SetTimeout records the timeout
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Timeout returns the last timeout set
func (m *MockTransport) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// Close marks the mock closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// BuildTargetResponse builds an InListPassiveTarget reply for one type A
// target with the given UID.
func BuildTargetResponse(uid []byte) []byte {
	resp := []byte{cmdInListPassiveTarget + 1, 0x01, 0x01, 0x00, 0x44, 0x00, byte(len(uid))}
	return append(resp, uid...)
}

// BuildNoTargetResponse builds an empty InListPassiveTarget reply
func BuildNoTargetResponse() []byte {
	return []byte{cmdInListPassiveTarget + 1, 0x00}
}

// Command codes for configuring MockTransport from other packages
const (
	CmdGetFirmwareVersion  = cmdGetFirmwareVersion
	CmdInListPassiveTarget = cmdInListPassiveTarget
	CmdInRelease           = cmdInRelease
)

var _ Transport = (*MockTransport)(nil)

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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "transport timeout", err: ErrTransportTimeout, want: true},
		{name: "transport read", err: ErrTransportRead, want: true},
		{name: "transport write", err: ErrTransportWrite, want: true},
		{name: "communication failed", err: ErrCommunicationFailed, want: true},
		{name: "no ACK", err: ErrNoACK, want: true},
		{name: "frame corrupted", err: ErrFrameCorrupted, want: true},
		{name: "checksum mismatch", err: ErrChecksumMismatch, want: true},
		{name: "wrapped timeout", err: fmt.Errorf("outer: %w", ErrTransportTimeout), want: true},
		{name: "device not found", err: ErrDeviceNotFound, want: false},
		{name: "tag not found", err: ErrTagNotFound, want: false},
		{name: "data too large", err: ErrDataTooLarge, want: false},
		{name: "invalid parameter", err: ErrInvalidParameter, want: false},
		{name: "unwrapped string", err: errors.New("outer: " + ErrTransportTimeout.Error()), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypePermanent},
		{name: "timeout", err: ErrTransportTimeout, want: ErrorTypeTimeout},
		{name: "read", err: ErrTransportRead, want: ErrorTypeTransient},
		{name: "nack", err: ErrNACKReceived, want: ErrorTypeTransient},
		{name: "not found", err: ErrDeviceNotFound, want: ErrorTypePermanent},
		{name: "unknown", err: errors.New("unknown error"), want: ErrorTypePermanent},
		{name: "transport error", err: NewTimeoutError("read", "/dev/ttyUSB0"), want: ErrorTypeTimeout},
		{
			name: "wrapped transport error",
			err:  fmt.Errorf("outer: %w", NewDataTooLargeError("write", "/dev/ttyUSB0")),
			want: ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	withPort := NewTransportError("read", "/dev/ttyUSB0", errors.New("connection failed"), ErrorTypeTransient)
	assert.Equal(t, "read on /dev/ttyUSB0: connection failed", withPort.Error())
	assert.True(t, withPort.Retryable)

	withoutPort := &TransportError{Op: "write", Err: errors.New("device busy")}
	assert.Equal(t, "write: device busy", withoutPort.Error())

	assert.ErrorIs(t, NewTimeoutError("read", "x"), ErrTransportTimeout)
	assert.ErrorIs(t, NewFrameCorruptedError("read", "x"), ErrFrameCorrupted)
	assert.ErrorIs(t, NewNoACKError("read", "x"), ErrNoACK)
	assert.ErrorIs(t, NewTransportNotReadyError("read", "x"), ErrTransportNotReady)

	tooLarge := NewDataTooLargeError("write", "x")
	assert.ErrorIs(t, tooLarge, ErrDataTooLarge)
	assert.False(t, tooLarge.Retryable)
}

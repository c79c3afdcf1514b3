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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	c := DefaultConfig()

	assert.Equal(t, time.Second, c.DuplicateWindow)
	assert.Equal(t, 10*time.Second, c.IdleTimeout)
	assert.Equal(t, 50*time.Millisecond, c.KeyFlash)
	assert.Equal(t, 250*time.Millisecond, c.SubmitFlash)
	assert.Equal(t, 20, c.Capacity)
	assert.Equal(t, byte('#'), c.Terminator)
	require.NoError(t, c.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		modify  func(*Config)
		name    string
	}{
		{name: "zero capacity", modify: func(c *Config) { c.Capacity = 0 }, wantErr: ErrInvalidCapacity},
		{name: "negative capacity", modify: func(c *Config) { c.Capacity = -3 }, wantErr: ErrInvalidCapacity},
		{name: "negative window", modify: func(c *Config) { c.DuplicateWindow = -time.Second }, wantErr: ErrInvalidDuration},
		{name: "idle timeout too long", modify: func(c *Config) { c.IdleTimeout = 30 * 24 * time.Hour }, wantErr: ErrInvalidDuration},
		{name: "zero flashes allowed", modify: func(c *Config) { c.KeyFlash, c.SubmitFlash = 0, 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := DefaultConfig()
			tt.modify(c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestElapsed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  uint32
		then uint32
		want uint32
	}{
		{name: "no wrap", now: 1500, then: 500, want: 1000},
		{name: "same instant", now: 42, then: 42, want: 0},
		{name: "across wrap", now: 0x0000_0100, then: 0xFFFF_FF00, want: 0x200},
		{name: "at wrap", now: 0, then: 0xFFFF_FFFF, want: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Elapsed(tt.now, tt.then))
		})
	}
}

func TestMonotonicClock(t *testing.T) {
	t.Parallel()

	c := NewMonotonicClock()
	first := c.NowMillis()
	time.Sleep(5 * time.Millisecond)
	second := c.NowMillis()

	assert.GreaterOrEqual(t, Elapsed(second, first), uint32(5))
}

func TestEnabled(t *testing.T) {
	t.Parallel()

	assert.False(t, Enabled(NoCards{}))
	assert.False(t, Enabled(&NoKeys{}))
	assert.False(t, Enabled(nil))
	assert.True(t, Enabled(&fakeCards{}))
	assert.True(t, Enabled(&fakeKeys{}))
}

func TestKeyBuffer(t *testing.T) {
	t.Parallel()

	b := NewKeyBuffer(3)
	assert.True(t, b.Append('1'))
	assert.True(t, b.Append('2'))
	assert.True(t, b.Append('3'))
	assert.False(t, b.Append('4'))
	assert.True(t, b.Full())
	assert.Equal(t, "123", b.String())

	b.Reset()
	assert.Zero(t, b.Len())
	assert.Equal(t, 3, b.Cap())
	assert.Empty(t, b.String())
}

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
	"bytes"
	"context"
	"testing"

	"github.com/ZaparooProject/go-tapkey/pn532"
	"github.com/ZaparooProject/go-tapkey/polling"
	"github.com/ZaparooProject/go-tapkey/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPN532Reader(t *testing.T) (*PN532Reader, *pn532.MockTransport) {
	t.Helper()
	mock := pn532.NewMockTransport()
	dev, err := pn532.New(mock)
	require.NoError(t, err)
	require.NoError(t, dev.Init(context.Background()))
	return NewPN532Reader(dev), mock
}

func TestPN532Reader_NoCard(t *testing.T) {
	t.Parallel()
	r, _ := newTestPN532Reader(t)
	ctx := context.Background()

	assert.False(t, r.HasNewCard(ctx))
	_, err := r.ReadSerial(ctx)
	require.ErrorIs(t, err, polling.ErrNoCard)
	require.NoError(t, r.Halt(ctx))
}

func TestPN532Reader_CardLifecycle(t *testing.T) {
	t.Parallel()
	r, mock := newTestPN532Reader(t)
	ctx := context.Background()
	uid := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	mock.SetResponse(pn532.CmdInListPassiveTarget, pn532.BuildTargetResponse(uid))

	require.True(t, r.HasNewCard(ctx))
	got, err := r.ReadSerial(ctx)
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	require.NoError(t, r.Halt(ctx))
	assert.Equal(t, []byte{0x01}, mock.LastArgs(pn532.CmdInRelease))

	_, err = r.ReadSerial(ctx)
	require.ErrorIs(t, err, polling.ErrNoCard)

	require.NoError(t, r.Halt(ctx))
	assert.Equal(t, 1, mock.GetCallCount(pn532.CmdInRelease), "nothing to release")
}

func TestPN532Reader_DetectionErrorIsNoCard(t *testing.T) {
	t.Parallel()
	r, mock := newTestPN532Reader(t)
	mock.SetError(pn532.CmdInListPassiveTarget, pn532.ErrTransportRead)

	assert.False(t, r.HasNewCard(context.Background()))
}

func TestPN532Reader_Describe(t *testing.T) {
	t.Parallel()
	r, _ := newTestPN532Reader(t)
	assert.Equal(t, "PN532 reader, firmware PN532 v1.6 via mock", r.Describe())
}

func TestPN532Reader_WithCardMonitor(t *testing.T) {
	t.Parallel()
	r, mock := newTestPN532Reader(t)
	mock.SetResponse(pn532.CmdInListPassiveTarget, pn532.BuildTargetResponse([]byte{0x04, 0xA1, 0xB2, 0xC3}))

	var out bytes.Buffer
	monitor := polling.NewCardMonitor(r, status.NewWriter(&out), nil, nil)
	monitor.Poll(context.Background())

	assert.Equal(t, "NFC:04A1B2C3\r\n", out.String())
	assert.Equal(t, 1, mock.GetCallCount(pn532.CmdInRelease))
}

func TestOpenPN532_UnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := OpenPN532(context.Background(), PN532Config{Driver: "pn532-spi", Device: "/dev/spidev0.0"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}

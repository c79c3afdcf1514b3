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
	"strings"
	"testing"

	"github.com/ZaparooProject/go-tapkey/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keypadHarness struct {
	monitor   *KeypadMonitor
	keys      *fakeKeys
	backlight *fakeBacklight
	clock     *fakeClock
	rec       *recorder
}

func newKeypadHarness(config *Config) *keypadHarness {
	h := &keypadHarness{
		keys:      &fakeKeys{},
		backlight: &fakeBacklight{},
		clock:     &fakeClock{now: 1000},
		rec:       newRecorder(),
	}
	h.monitor = NewKeypadMonitor(h.keys, h.backlight, h.rec, h.clock, config)
	return h
}

// typeKeys presses each key in turn, letting every backlight flash finish
// before the next key
func (h *keypadHarness) typeKeys(keys string) {
	ctx := context.Background()
	for i := 0; i < len(keys); i++ {
		h.keys.push(keys[i : i+1])
		h.monitor.Poll(ctx)
		h.clock.Advance(300)
		h.monitor.Poll(ctx)
	}
}

func TestNewKeypadMonitor_Defaults(t *testing.T) {
	t.Parallel()

	m := NewKeypadMonitor(nil, nil, newRecorder(), nil, nil)

	assert.IsType(t, NoKeys{}, m.Source())
	assert.IsType(t, NoBacklight{}, m.Backlight())
	assert.Equal(t, 20, m.buffer.Cap())
}

func TestKeypadMonitor_Submit(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)

	h.typeKeys("1234#")

	assert.Equal(t, []status.Line{{Type: status.TypeKeys, Value: "1234"}}, h.rec.lines(t))
	state := h.monitor.State()
	assert.Empty(t, state.Buffer)
	assert.Equal(t, uint64(1), state.Submitted)
}

func TestKeypadMonitor_StarIsOrdinary(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)

	h.typeKeys("*0*9#")

	assert.Equal(t, []status.Line{{Type: status.TypeKeys, Value: "*0*9"}}, h.rec.lines(t))
}

func TestKeypadMonitor_EmptySubmit(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)

	h.typeKeys("#")

	assert.Equal(t, []status.Line{{Type: status.TypeKeys, Value: ""}}, h.rec.lines(t))
}

func TestKeypadMonitor_CapacityDropsExtraKeys(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)

	h.typeKeys("123456789012345678901")
	assert.Equal(t, uint64(1), h.monitor.State().Dropped)
	assert.Len(t, h.monitor.State().Buffer, 20)

	h.typeKeys("#")

	lines := h.rec.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "12345678901234567890", lines[0].Value)
}

func TestKeypadMonitor_DroppedKeyLeavesBacklight(t *testing.T) {
	t.Parallel()
	config := DefaultConfig()
	config.Capacity = 2
	h := newKeypadHarness(config)

	h.typeKeys("12")
	calls := len(h.backlight.calls)

	h.keys.push("3")
	h.monitor.Poll(context.Background())

	assert.Len(t, h.backlight.calls, calls)
	assert.False(t, h.monitor.State().Flashing)
	assert.Empty(t, h.rec.lines(t))
}

func TestKeypadMonitor_IdleTimeout(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)
	ctx := context.Background()

	h.typeKeys("12")
	lastKey := h.monitor.State().LastKeyAt

	// an idle loop keeps polling while nobody types
	h.clock.now = lastKey + 10_001
	h.monitor.Poll(ctx)
	assert.Empty(t, h.monitor.State().Buffer)
	assert.Equal(t, uint64(1), h.monitor.State().TimedOut)

	h.typeKeys("34#")
	assert.Equal(t, []status.Line{{Type: status.TypeKeys, Value: "34"}}, h.rec.lines(t))
}

func TestKeypadMonitor_IdleTimeoutAcrossWrap(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)
	h.clock.now = 0xFFFF_F000
	ctx := context.Background()

	h.typeKeys("12")
	lastKey := h.monitor.State().LastKeyAt

	// still inside the timeout after the counter wraps
	h.clock.now = lastKey + 9_000
	require.Less(t, h.clock.now, lastKey)
	h.monitor.Poll(ctx)
	assert.Equal(t, "12", h.monitor.State().Buffer)

	h.clock.now = lastKey + 10_001
	h.monitor.Poll(ctx)
	assert.Empty(t, h.monitor.State().Buffer)
	assert.Equal(t, uint64(1), h.monitor.State().TimedOut)

	h.typeKeys("3#")
	assert.Equal(t, []status.Line{{Type: status.TypeKeys, Value: "3"}}, h.rec.lines(t))
}

func TestKeypadMonitor_IdleTimeoutBeforeNextKey(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)

	h.typeKeys("99")
	h.clock.now = h.monitor.State().LastKeyAt + 15_000

	// the first poll after the gap both expires the old entry and reads the key
	h.typeKeys("7#")

	assert.Equal(t, []status.Line{{Type: status.TypeKeys, Value: "7"}}, h.rec.lines(t))
}

func TestKeypadMonitor_IdleTimeoutBoundary(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)

	h.typeKeys("5")
	h.clock.now = h.monitor.State().LastKeyAt + 10_000
	h.monitor.Poll(context.Background())

	assert.Equal(t, "5", h.monitor.State().Buffer)
}

func TestKeypadMonitor_DroppedKeyRefreshesIdleTimer(t *testing.T) {
	t.Parallel()
	config := DefaultConfig()
	config.Capacity = 1
	h := newKeypadHarness(config)
	ctx := context.Background()

	h.typeKeys("1")
	h.clock.Advance(9_000)
	h.typeKeys("2")
	h.clock.Advance(9_000)
	h.monitor.Poll(ctx)

	assert.Equal(t, "1", h.monitor.State().Buffer)
	assert.Equal(t, uint64(1), h.monitor.State().Dropped)
}

func TestKeypadMonitor_KeyFlash(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)
	ctx := context.Background()

	h.keys.push("1")
	h.monitor.Poll(ctx)
	assert.Equal(t, []bool{false}, h.backlight.calls)
	assert.True(t, h.monitor.State().Flashing)

	// keys pressed during the flash wait for it to finish
	h.keys.push("2")
	h.clock.Advance(49)
	h.monitor.Poll(ctx)
	assert.Equal(t, []bool{false}, h.backlight.calls)
	assert.Len(t, h.keys.pending, 1)

	h.clock.Advance(1)
	h.monitor.Poll(ctx)
	assert.Equal(t, []bool{false, true, false}, h.backlight.calls)
	assert.Empty(t, h.keys.pending)
	assert.Equal(t, "12", h.monitor.State().Buffer)
}

func TestKeypadMonitor_SubmitFlash(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)
	ctx := context.Background()

	h.typeKeys("4")
	h.backlight.calls = nil

	h.keys.push("#")
	h.monitor.Poll(ctx)
	assert.Equal(t, []bool{false}, h.backlight.calls)
	assert.Len(t, h.rec.lines(t), 1)

	h.clock.Advance(249)
	h.monitor.Poll(ctx)
	on, _ := h.backlight.last()
	assert.False(t, on)

	h.clock.Advance(1)
	h.monitor.Poll(ctx)
	on, ok := h.backlight.last()
	require.True(t, ok)
	assert.True(t, on)
	assert.False(t, h.monitor.State().Flashing)
}

func TestKeypadMonitor_ZeroFlash(t *testing.T) {
	t.Parallel()
	config := DefaultConfig()
	config.KeyFlash = 0
	config.SubmitFlash = 0
	h := newKeypadHarness(config)
	ctx := context.Background()

	h.keys.push("12#")
	h.monitor.Poll(ctx)
	h.monitor.Poll(ctx)
	h.monitor.Poll(ctx)

	assert.Equal(t, []bool{false, true, false, true, false, true}, h.backlight.calls)
	assert.Equal(t, []status.Line{{Type: status.TypeKeys, Value: "12"}}, h.rec.lines(t))
}

func TestKeypadMonitor_CustomTerminator(t *testing.T) {
	t.Parallel()
	config := DefaultConfig()
	config.Terminator = '*'
	h := newKeypadHarness(config)

	h.typeKeys("12#3*")

	assert.Equal(t, []status.Line{{Type: status.TypeKeys, Value: "12#3"}}, h.rec.lines(t))
}

func TestKeypadMonitor_NoKeyNoChange(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)

	for i := 0; i < 10; i++ {
		h.monitor.Poll(context.Background())
		h.clock.Advance(100)
	}

	assert.Empty(t, h.backlight.calls)
	assert.Empty(t, h.rec.lines(t))
	assert.Zero(t, h.monitor.State().LastKeyAt)
}

func TestKeypadMonitor_OutputAlwaysWellFormed(t *testing.T) {
	t.Parallel()
	h := newKeypadHarness(nil)

	h.typeKeys(strings.Repeat("0123456789*", 3) + "#")
	h.typeKeys("##")
	h.clock.Advance(20_000)
	h.typeKeys("8#")

	lines := h.rec.lines(t)
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.Equal(t, status.TypeKeys, l.Type)
		assert.LessOrEqual(t, len(l.Value), 20)
	}
	assert.Equal(t, "8", lines[3].Value)
}

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

package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.bug.st/serial/enumerator"
)

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		vidpid    string
		blocklist []string
		want      bool
	}{
		{name: "listed", vidpid: "1D6B:0002", blocklist: DefaultBlocklist(), want: true},
		{name: "case and space", vidpid: " 1d6b:0003 ", blocklist: DefaultBlocklist(), want: true},
		{name: "not listed", vidpid: "1A86:7523", blocklist: DefaultBlocklist(), want: false},
		{name: "empty", vidpid: "", blocklist: []string{""}, want: false},
		{name: "empty blocklist", vidpid: "1D6B:0002", blocklist: nil, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsBlocked(tt.vidpid, tt.blocklist))
		})
	}
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/ttyUSB0", ignorePaths: []string{}},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyUSB0"}},
		{name: "exact match unix path", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "exact match windows path", devicePath: "COM2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "case insensitive", devicePath: "com2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "unclean path", devicePath: "/dev/../dev/ttyACM0", ignorePaths: []string{"/dev/ttyACM0"}, expected: true},
		{name: "empty entry skipped", devicePath: "/dev/ttyS0", ignorePaths: []string{"", "/dev/ttyS1"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestFilterPorts(t *testing.T) {
	t.Parallel()

	details := []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "1A86", PID: "7523", Product: "USB Serial"},
		{Name: "/dev/ttyAMA0"},
		nil,
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A10K"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "1D6B", PID: "0002"},
	}

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		ports := filterPorts(details, nil)
		assert.Equal(t, []Port{
			{Name: "/dev/ttyAMA0"},
			{Name: "/dev/ttyUSB0", IsUSB: true, VIDPID: "0403:6001", SerialNumber: "A10K"},
			{Name: "/dev/ttyUSB1", IsUSB: true, VIDPID: "1A86:7523", Product: "USB Serial"},
		}, ports)
	})

	t.Run("usb only with ignored path", func(t *testing.T) {
		t.Parallel()
		ports := filterPorts(details, &Options{USBOnly: true, IgnorePaths: []string{"/dev/ttyUSB0"}})
		names := make([]string, 0, len(ports))
		for _, p := range ports {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyUSB1"}, names)
	})
}

func TestPort_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/dev/ttyAMA0", Port{Name: "/dev/ttyAMA0"}.String())
	assert.Equal(t, "/dev/ttyUSB0 [0403:6001] FT232R (A10K)", Port{
		Name: "/dev/ttyUSB0", IsUSB: true, VIDPID: "0403:6001", Product: "FT232R", SerialNumber: "A10K",
	}.String())
}

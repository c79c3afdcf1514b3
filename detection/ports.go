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

// Package detection enumerates the serial ports a station can use for its
// status link or a PN532 on HSU.
package detection

import (
	"fmt"
	"sort"

	"go.bug.st/serial/enumerator"
)

// Port describes one serial port
type Port struct {
	Name         string
	VIDPID       string
	Product      string
	SerialNumber string
	IsUSB        bool
}

func (p Port) String() string {
	if !p.IsUSB {
		return p.Name
	}
	s := fmt.Sprintf("%s [%s]", p.Name, p.VIDPID)
	if p.Product != "" {
		s += " " + p.Product
	}
	if p.SerialNumber != "" {
		s += " (" + p.SerialNumber + ")"
	}
	return s
}

// Options filters the port list
type Options struct {
	Blocklist   []string
	IgnorePaths []string
	// USBOnly drops on-board UARTs
	USBOnly bool
}

// DefaultOptions returns options with the default blocklist
func DefaultOptions() *Options {
	return &Options{Blocklist: DefaultBlocklist()}
}

// ListPorts enumerates serial ports, sorted by name
func ListPorts(opts *Options) ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return filterPorts(details, opts), nil
}

func filterPorts(details []*enumerator.PortDetails, opts *Options) []Port {
	if opts == nil {
		opts = DefaultOptions()
	}

	ports := make([]Port, 0, len(details))
	for _, d := range details {
		if d == nil || IsPathIgnored(d.Name, opts.IgnorePaths) {
			continue
		}
		if !d.IsUSB && opts.USBOnly {
			continue
		}

		p := Port{Name: d.Name, IsUSB: d.IsUSB}
		if d.IsUSB {
			p.VIDPID = fmt.Sprintf("%s:%s", d.VID, d.PID)
			if IsBlocked(p.VIDPID, opts.Blocklist) {
				continue
			}
			p.Product = d.Product
			p.SerialNumber = d.SerialNumber
		}
		ports = append(ports, p)
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports
}

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

/*
Package tapkey runs a door-station style input loop: it polls a contactless
card reader and a matrix keypad and reports what it sees as CRLF-terminated
status lines on a serial link.

	DEBUG:card reader ready: PN532 reader, firmware PN532 v1.6 via uart
	NFC:04A1B2C3
	KEYS:1234

A card is reported once when it is presented; presenting the same card again
within the duplicate window (one second by default) is suppressed. Keys are
collected until '#' is pressed and then sent as one KEYS line. An unfinished
entry is discarded after ten seconds without a key.

Basic Usage:

	sink := status.NewWriter(port)

	dev, _ := pn532.New(transport)
	_ = dev.Init(ctx)

	cards := polling.NewCardMonitor(hardware.NewPN532Reader(dev), sink, nil, nil)
	keys := polling.NewKeypadMonitor(keypad, backlight, sink, nil, nil)

	station, err := tapkey.New(sink, cards, keys, tapkey.WithInterval(5*time.Millisecond))
	if err != nil {
		return err
	}
	station.Start()
	err = station.Run(ctx) // returns ctx.Err() once ctx is done

Either monitor may be nil, in which case that peripheral is disabled. The
cmd/tapkey program wires all of this from a config file, environment
variables and flags.
*/
package tapkey

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

package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame errors
var (
	// ErrIncomplete means more bytes are needed before a frame can be parsed
	ErrIncomplete = errors.New("incomplete frame")
	// ErrCorrupted means a frame failed a checksum or structure check
	ErrCorrupted = errors.New("corrupted frame")
	// ErrTooLarge means the payload does not fit in a normal frame
	ErrTooLarge = errors.New("frame data too large")
	// ErrNack means the PN532 asked for the last frame again
	ErrNack = errors.New("NACK received")
)

// Checksum returns the byte sum of data
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// DataChecksum returns the DCS byte for a frame carrying tfi and data
func DataChecksum(tfi byte, data []byte) byte {
	return ^(tfi + Checksum(data)) + 1
}

// Build encodes a host-to-PN532 command frame
func Build(cmd byte, args []byte) ([]byte, error) {
	length := 2 + len(args) // TFI + command + args
	if length > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, length)
	}

	buf := make([]byte, 0, length+7)
	buf = append(buf, Preamble, StartCode1, StartCode2, byte(length), ^byte(length)+1, HostToPn532, cmd)
	buf = append(buf, args...)

	dcs := ^(HostToPn532 + cmd + Checksum(args)) + 1
	buf = append(buf, dcs, Postamble)
	return buf, nil
}

// IsAck reports whether buf starts with an ACK frame
func IsAck(buf []byte) bool {
	return bytes.HasPrefix(buf, AckFrame)
}

// FindAck locates an ACK or NACK frame in buf. It returns the number of bytes
// consumed up to and including the frame.
func FindAck(buf []byte) (int, error) {
	start := bytes.Index(buf, []byte{StartCode1, StartCode2})
	if start < 0 || len(buf) < start+4 {
		return 0, ErrIncomplete
	}

	lenByte, lcs := buf[start+2], buf[start+3]
	switch {
	case lenByte == 0x00 && lcs == 0xFF:
		return start + 4, nil
	case lenByte == 0xFF && lcs == 0x00:
		return start + 4, ErrNack
	default:
		return 0, fmt.Errorf("%w: expected ACK, got LEN=%02X LCS=%02X", ErrCorrupted, lenByte, lcs)
	}
}

// Parse extracts the payload of the first PN532-to-host information frame
// in buf. The payload starts with the response command code (command + 1)
// followed by its parameters. consumed is the number of bytes up to the end
// of the frame, so callers can keep any trailing bytes.
func Parse(buf []byte) (payload []byte, consumed int, err error) {
	start := bytes.Index(buf, []byte{StartCode1, StartCode2})
	if start < 0 || len(buf) < start+4 {
		return nil, 0, ErrIncomplete
	}
	off := start + 2

	length := int(buf[off])
	if length == 0 {
		return nil, off + 2, fmt.Errorf("%w: unexpected ACK", ErrCorrupted)
	}
	if byte(length)+buf[off+1] != 0 {
		return nil, off + 2, fmt.Errorf("%w: bad length checksum", ErrCorrupted)
	}

	end := off + 2 + length + 1 // data + DCS
	if len(buf) < end {
		return nil, 0, ErrIncomplete
	}

	body := buf[off+2 : off+2+length]
	if Checksum(body)+buf[end-1] != 0 {
		return nil, end, fmt.Errorf("%w: bad data checksum", ErrCorrupted)
	}
	if body[0] != Pn532ToHost {
		return nil, end, fmt.Errorf("%w: unexpected TFI %02X", ErrCorrupted, body[0])
	}

	// the postamble is optional for parsing; consume it if present
	if len(buf) > end && buf[end] == Postamble {
		end++
	}

	payload = make([]byte, length-1)
	copy(payload, body[1:])
	return payload, end, nil
}

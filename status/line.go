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

// Package status implements the line protocol written to the status link.
//
// Every line has the form "<TYPE>:<value>\r\n" where TYPE is one of DEBUG,
// NFC or KEYS. Values never contain CR or LF; they are stripped on output so
// a single value can never split into two lines.
package status

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Type identifies the kind of status line
type Type string

const (
	// TypeDebug carries free-form startup and status text.
	TypeDebug Type = "DEBUG"
	// TypeNFC carries a card identifier rendered by HexUID.
	TypeNFC Type = "NFC"
	// TypeKeys carries the characters entered on the keypad.
	TypeKeys Type = "KEYS"
)

// Terminator ends every status line
const Terminator = "\r\n"

// Protocol errors
var (
	ErrUnknownType   = errors.New("unknown status line type")
	ErrMalformedLine = errors.New("malformed status line")
)

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

// Valid reports whether t is one of the protocol's line types
func (t Type) Valid() bool {
	switch t {
	case TypeDebug, TypeNFC, TypeKeys:
		return true
	default:
		return false
	}
}

// Line is a single status message
type Line struct {
	Type  Type
	Value string
}

// String returns the wire form of the line, terminator included
func (l Line) String() string {
	return string(l.Type) + ":" + sanitize(l.Value) + Terminator
}

// Bytes returns the wire form of the line as a byte slice
func (l Line) Bytes() []byte {
	return []byte(l.String())
}

// Format renders a line of the given type. It returns ErrUnknownType for
// anything that is not a protocol type so callers cannot emit a line without
// a recognized prefix.
func Format(t Type, value string) ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
	return Line{Type: t, Value: value}.Bytes(), nil
}

// HexUID renders a card identifier as uppercase hex, two digits per byte,
// with no separators. The output always has exactly 2*len(uid) characters.
func HexUID(uid []byte) string {
	return strings.ToUpper(hex.EncodeToString(uid))
}

// ParseLine parses a single wire line including its CRLF terminator
func ParseLine(s string) (Line, error) {
	body, ok := strings.CutSuffix(s, Terminator)
	if !ok {
		return Line{}, fmt.Errorf("%w: missing terminator", ErrMalformedLine)
	}
	if strings.ContainsAny(body, "\r\n") {
		return Line{}, fmt.Errorf("%w: embedded line break", ErrMalformedLine)
	}

	typ, value, found := strings.Cut(body, ":")
	if !found {
		return Line{}, fmt.Errorf("%w: missing type separator", ErrMalformedLine)
	}

	t := Type(typ)
	if !t.Valid() {
		return Line{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	return Line{Type: t, Value: value}, nil
}

func sanitize(v string) string {
	if !strings.ContainsAny(v, "\r\n") {
		return v
	}
	return lineBreaks.Replace(v)
}

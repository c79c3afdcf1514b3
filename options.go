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

package tapkey

import (
	"fmt"
	"time"
)

// Option is a functional option for configuring a Station
type Option func(*Station) error

// WithInterval sets the pause between loop iterations. Zero polls
// back-to-back.
func WithInterval(interval time.Duration) Option {
	return func(s *Station) error {
		if interval < 0 {
			return fmt.Errorf("%w: negative interval %v", ErrInvalidOption, interval)
		}
		s.interval = interval
		return nil
	}
}

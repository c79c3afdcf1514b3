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
	"fmt"
	"time"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithTimeout sets the transport response timeout
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive", ErrInvalidParameter)
		}
		d.config.Timeout = timeout
		return nil
	}
}

// WithInitRetries sets how often Init retries a retryable failure
func WithInitRetries(retries int, delay time.Duration) Option {
	return func(d *Device) error {
		if retries < 0 {
			return fmt.Errorf("%w: retries must not be negative", ErrInvalidParameter)
		}
		d.config.InitRetries = retries
		d.config.InitRetryDelay = delay
		return nil
	}
}

// WithPassiveRetries sets the passive activation retry count written by Init
func WithPassiveRetries(retries byte) Option {
	return func(d *Device) error {
		d.config.PassiveRetries = retries
		return nil
	}
}

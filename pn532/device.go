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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-tapkey/internal/transport"
	"github.com/rs/zerolog/log"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Timeout is the transport response timeout
	Timeout time.Duration
	// InitRetries is how many times a retryable failure during Init is retried
	InitRetries int
	// InitRetryDelay is the pause between Init attempts
	InitRetryDelay time.Duration
	// PassiveRetries is the number of activation attempts InListPassiveTarget
	// makes before giving up. 0xFF retries forever.
	PassiveRetries byte
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Timeout:        time.Second,
		InitRetries:    3,
		InitRetryDelay: 100 * time.Millisecond,
		PassiveRetries: 0x01,
	}
}

// FirmwareVersion is the reply to GetFirmwareVersion
type FirmwareVersion struct {
	IC       byte
	Version  byte
	Revision byte
	Support  byte
}

func (f FirmwareVersion) String() string {
	return fmt.Sprintf("PN5%02X v%d.%d", f.IC, f.Version, f.Revision)
}

// Target is a card found by InListPassiveTarget
type Target struct {
	UID    []byte
	ATQA   uint16
	Number byte
	SAK    byte
}

// Device represents a PN532 NFC reader device
//
// Thread Safety: commands are serialized with a mutex, so a Device may be
// shared, but the station only ever drives it from its polling goroutine.
type Device struct {
	transport Transport
	config    *DeviceConfig
	firmware  *FirmwareVersion
	mu        sync.Mutex
}

// New creates a new PN532 device with the given transport
func New(t Transport, opts ...Option) (*Device, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	device := &Device{
		transport: t,
		config:    DefaultDeviceConfig(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Init wakes the controller, reads its firmware version, puts the SAM in
// normal mode and bounds passive activation retries so that DetectTag
// returns promptly when no card is in the field.
func (d *Device) Init(ctx context.Context) error {
	if err := d.transport.SetTimeout(d.config.Timeout); err != nil {
		return fmt.Errorf("failed to set transport timeout: %w", err)
	}

	fw, err := transport.WithRetry(ctx, transport.RetryConfig{
		MaxRetries: d.config.InitRetries,
		RetryDelay: d.config.InitRetryDelay,
	}, func() (*FirmwareVersion, bool, error) {
		fw, err := d.getFirmwareVersion(ctx)
		if err != nil {
			if IsRetryable(err) {
				log.Debug().Err(err).Msg("firmware version request failed, retrying")
				return nil, true, nil
			}
			return nil, false, err
		}
		return fw, false, nil
	})
	if errors.Is(err, transport.ErrRetriesExhausted) {
		return fmt.Errorf("failed to get firmware version: %w", ErrDeviceNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get firmware version: %w", err)
	}

	if err := d.samConfiguration(ctx); err != nil {
		return fmt.Errorf("SAM configuration failed: %w", err)
	}

	if err := d.setPassiveRetries(ctx, d.config.PassiveRetries); err != nil {
		return fmt.Errorf("RF configuration failed: %w", err)
	}

	d.mu.Lock()
	d.firmware = fw
	d.mu.Unlock()

	log.Debug().Stringer("firmware", fw).Str("transport", string(d.transport.Type())).
		Msg("PN532 initialized")
	return nil
}

// FirmwareVersion returns the version read by Init
func (d *Device) FirmwareVersion() (FirmwareVersion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.firmware == nil {
		return FirmwareVersion{}, ErrNotInitialized
	}
	return *d.firmware, nil
}

// DetectTag lists at most one ISO14443A target at 106 kbps. It returns
// ErrNoTagDetected when the field is empty.
func (d *Device) DetectTag(ctx context.Context) (*Target, error) {
	resp, err := d.command(ctx, cmdInListPassiveTarget, maxTargets, brTypeA106)
	if err != nil {
		return nil, fmt.Errorf("InListPassiveTarget failed: %w", err)
	}
	return parseTarget(resp)
}

// Release deselects the target so it is reported again only after it has
// left and re-entered the field. A tg of 0 releases every target.
func (d *Device) Release(ctx context.Context, tg byte) error {
	resp, err := d.command(ctx, cmdInRelease, tg)
	if err != nil {
		return fmt.Errorf("InRelease failed: %w", err)
	}
	if len(resp) < 2 {
		return fmt.Errorf("%w: InRelease response too short: %d bytes", ErrUnexpectedResponse, len(resp))
	}
	if status := resp[1] & statusErrorMask; status != statusOK {
		return fmt.Errorf("InRelease failed with status: %02X", status)
	}
	return nil
}

// Close closes the underlying transport
func (d *Device) Close() error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

func (d *Device) getFirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	resp, err := d.command(ctx, cmdGetFirmwareVersion)
	if err != nil {
		return nil, err
	}
	if len(resp) < 5 {
		return nil, fmt.Errorf("%w: firmware version response too short: %d bytes",
			ErrUnexpectedResponse, len(resp))
	}
	return &FirmwareVersion{
		IC:       resp[1],
		Version:  resp[2],
		Revision: resp[3],
		Support:  resp[4],
	}, nil
}

func (d *Device) samConfiguration(ctx context.Context) error {
	_, err := d.command(ctx, cmdSamConfiguration, samModeNormal, samTimeout, samUseIRQ)
	return err
}

func (d *Device) setPassiveRetries(ctx context.Context, retries byte) error {
	_, err := d.command(ctx, cmdRFConfiguration,
		rfItemMaxRetries, rfRetriesInfinite, 0x01, retries)
	return err
}

// command sends cmd and checks that the reply carries the matching response
// code.
func (d *Device) command(ctx context.Context, cmd byte, args ...byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	resp, err := d.transport.SendCommand(ctx, cmd, args)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 || resp[0] != cmd+1 {
		return nil, fmt.Errorf("%w: command %02X got % X", ErrUnexpectedResponse, cmd, resp)
	}
	return resp, nil
}

func parseTarget(resp []byte) (*Target, error) {
	// [0x4B, NbTg, Tg, ATQA(2), SAK, NFCIDLength, NFCID...]
	if len(resp) < 2 {
		return nil, fmt.Errorf("%w: InListPassiveTarget response too short", ErrUnexpectedResponse)
	}
	if resp[1] == 0 {
		return nil, ErrNoTagDetected
	}
	if len(resp) < 7 {
		return nil, fmt.Errorf("%w: target data too short: %d bytes", ErrUnexpectedResponse, len(resp))
	}

	uidLen := int(resp[6])
	if uidLen == 0 || len(resp) < 7+uidLen {
		return nil, fmt.Errorf("%w: invalid UID length %d", ErrUnexpectedResponse, uidLen)
	}

	uid := make([]byte, uidLen)
	copy(uid, resp[7:7+uidLen])

	return &Target{
		Number: resp[2],
		ATQA:   uint16(resp[3])<<8 | uint16(resp[4]),
		SAK:    resp[5],
		UID:    uid,
	}, nil
}

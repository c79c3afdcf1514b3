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

// Command readtag opens a card reader and prints the UID of each card
// presented to it, using the same duplicate suppression as the station. It
// is meant for checking reader wiring before running tapkey.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-tapkey/detection"
	"github.com/ZaparooProject/go-tapkey/hardware"
	"github.com/ZaparooProject/go-tapkey/polling"
	"github.com/ZaparooProject/go-tapkey/status"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

type config struct {
	driver       *string
	device       *string
	resetPin     *string
	irqPin       *string
	baud         *int
	timeout      *time.Duration
	pollInterval *time.Duration
	debug        *bool
}

func parseFlags() *config {
	cfg := &config{
		driver: pflag.String("driver", hardware.DriverPN532UART,
			"Reader driver: pn532-uart, pn532-i2c or rc522"),
		device: pflag.String("device", "",
			"Serial device, I2C bus or SPI port (e.g., /dev/ttyUSB0, /dev/i2c-1, SPI0.0). "+
				"Leave empty to probe for a PN532."),
		resetPin:     pflag.String("reset-pin", "GPIO25", "MFRC522 reset pin"),
		irqPin:       pflag.String("irq-pin", "GPIO24", "MFRC522 IRQ pin"),
		baud:         pflag.Int("baud", 0, "PN532 UART baud rate (0 for 115200)"),
		timeout:      pflag.Duration("timeout", 30*time.Second, "Stop after this long (0 runs until interrupted)"),
		pollInterval: pflag.Duration("poll-interval", 100*time.Millisecond, "Polling interval for card detection"),
		debug:        pflag.Bool("debug", false, "Enable debug output"),
	}
	pflag.Parse()

	level := zerolog.InfoLevel
	if *cfg.debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	return cfg
}

func openReader(ctx context.Context, cfg *config) (polling.CardSource, func() error, error) {
	if *cfg.driver == hardware.DriverRC522 {
		if *cfg.device == "" {
			return nil, nil, errors.New("--device is required for rc522")
		}
		r, err := hardware.OpenRC522(*cfg.device, *cfg.resetPin, *cfg.irqPin, 0)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}

	r, err := hardware.OpenPN532(ctx, hardware.PN532Config{
		Driver: *cfg.driver,
		Device: *cfg.device,
		Baud:   *cfg.baud,
		Detect: detection.DefaultOptions(),
	})
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}

func describe(src polling.CardSource) string {
	if d, ok := src.(polling.Describer); ok {
		return d.Describe()
	}
	return "card reader"
}

func main() {
	cfg := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *cfg.timeout)
		defer cancel()
	}

	if err := hardware.Init(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize host: %v\n", err)
		os.Exit(1)
	}

	reader, closeReader, err := openReader(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to open reader: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeReader() }()

	_, _ = fmt.Printf("Opened %s\n", describe(reader))
	_, _ = fmt.Printf("Waiting for cards (timeout: %s, poll interval: %s)...\n", *cfg.timeout, *cfg.pollInterval)

	// lines go to stdout in the station's own format
	monitor := polling.NewCardMonitor(reader, status.NewWriter(os.Stdout), nil, nil)

	if *cfg.pollInterval <= 0 {
		*cfg.pollInterval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(*cfg.pollInterval)
	defer ticker.Stop()
	for {
		monitor.Poll(ctx)
		select {
		case <-ctx.Done():
			st := monitor.State()
			_, _ = fmt.Printf("Done: %d cards accepted, %d repeats suppressed\n", st.Accepted, st.Suppressed)
			return
		case <-ticker.C:
		}
	}
}

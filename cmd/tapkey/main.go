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

// Command tapkey runs a card reader and keypad station that reports events
// on a serial status link.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tapkey "github.com/ZaparooProject/go-tapkey"
	"github.com/ZaparooProject/go-tapkey/config"
	"github.com/ZaparooProject/go-tapkey/detection"
	"github.com/ZaparooProject/go-tapkey/hardware"
	"github.com/ZaparooProject/go-tapkey/polling"
	"github.com/ZaparooProject/go-tapkey/status"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run returns the process exit code. Diagnostics go to stderr; the status
// link is the only other output.
func run(args []string, stderr io.Writer) int {
	fs := config.NewFlagSet("tapkey")
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}

	setupLogging(stderr)

	if listPorts, _ := fs.GetBool("list-ports"); listPorts {
		return printPorts(os.Stdout)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return exitUsage
	}
	if debug, _ := fs.GetBool("debug"); debug {
		cfg.Log.Level = zerolog.DebugLevel.String()
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("configuration rejected")
		return exitUsage
	}
	level, _ := cfg.LogLevel()
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runStation(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("station failed to start")
		return exitFailure
	}
	return exitOK
}

func setupLogging(out io.Writer) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func printPorts(out io.Writer) int {
	ports, err := detection.ListPorts(detection.DefaultOptions())
	if err != nil {
		log.Error().Err(err).Msg("failed to list serial ports")
		return exitFailure
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "no serial ports found")
		return exitOK
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(out, p)
	}
	return exitOK
}

func runStation(ctx context.Context, cfg *config.Config) error {
	if err := hardware.Init(); err != nil {
		return err
	}

	sink, err := status.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		return err
	}
	defer closeLogged("status port", sink)

	cards, err := openCards(ctx, cfg.Card, cfg.Serial.Port)
	if err != nil {
		return err
	}
	if c, ok := cards.(io.Closer); ok {
		defer closeLogged("card reader", c)
	}

	keys, backlight, err := openKeypad(cfg.Keypad)
	if err != nil {
		return err
	}
	if h, ok := keys.(interface{ Halt() error }); ok {
		defer func() {
			backlight.SetOn(false)
			if err := h.Halt(); err != nil {
				log.Debug().Err(err).Msg("failed to release keypad rows")
			}
		}()
	}

	monitorCfg := cfg.Polling.Monitor()
	station, err := tapkey.New(sink,
		polling.NewCardMonitor(cards, sink, nil, monitorCfg),
		polling.NewKeypadMonitor(keys, backlight, sink, nil, monitorCfg),
		tapkey.WithInterval(cfg.Polling.Interval),
	)
	if err != nil {
		return err
	}

	log.Info().Str("status", sink.Name()).Int("baud", cfg.Serial.Baud).Msg("status link open")
	station.Start()

	err = station.Run(ctx)
	log.Info().Uint64("iterations", station.Iterations()).
		Uint64("lines", sink.Written()).
		Uint64("write_failures", sink.Failures()).
		Msg("station stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openCards opens the configured reader. A PN532 without a device is probed
// for on every port except the status link.
func openCards(ctx context.Context, cfg config.CardConfig, statusPort string) (polling.CardSource, error) {
	if !cfg.Enabled {
		return polling.NoCards{}, nil
	}

	switch cfg.Driver {
	case hardware.DriverRC522:
		r, err := hardware.OpenRC522(cfg.Device, cfg.ResetPin, cfg.IRQPin, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		r, err := hardware.OpenPN532(initCtx, hardware.PN532Config{
			Driver:  cfg.Driver,
			Device:  cfg.Device,
			Baud:    cfg.Baud,
			Timeout: cfg.Timeout,
			Detect: &detection.Options{
				Blocklist:   detection.DefaultBlocklist(),
				IgnorePaths: []string{statusPort},
			},
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

func openKeypad(cfg config.KeypadConfig) (polling.KeySource, polling.Backlight, error) {
	if !cfg.Enabled {
		return polling.NoKeys{}, polling.NoBacklight{}, nil
	}

	keypad, err := hardware.OpenKeypad(cfg.Rows, cfg.Cols, cfg.Layout, cfg.Debounce)
	if err != nil {
		return nil, nil, err
	}

	if cfg.BacklightPin == "" {
		return keypad, polling.NoBacklight{}, nil
	}
	backlight, err := hardware.OpenBacklight(cfg.BacklightPin, cfg.BacklightActiveLow)
	if err != nil {
		_ = keypad.Halt()
		return nil, nil, err
	}
	return keypad, backlight, nil
}

func closeLogged(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Str("peripheral", name).Msg("close failed")
	}
}

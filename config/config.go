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

// Package config loads station settings from defaults, an optional config
// file, TAPKEY_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-tapkey/hardware"
	"github.com/ZaparooProject/go-tapkey/polling"
	"github.com/ZaparooProject/go-tapkey/status"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. TAPKEY_SERIAL_PORT
const EnvPrefix = "TAPKEY"

// ErrInvalid is wrapped by every validation error
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete station configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Serial  SerialConfig  `mapstructure:"serial"`
	Card    CardConfig    `mapstructure:"card"`
	Keypad  KeypadConfig  `mapstructure:"keypad"`
	Polling PollingConfig `mapstructure:"polling"`
}

// SerialConfig is the status link
type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// CardConfig selects and addresses the card reader
type CardConfig struct {
	Driver   string `mapstructure:"driver"`
	Device   string `mapstructure:"device"`
	ResetPin string `mapstructure:"reset_pin"`
	IRQPin   string `mapstructure:"irq_pin"`
	Baud     int    `mapstructure:"baud"`
	// Timeout of 0 selects the driver default
	Timeout time.Duration `mapstructure:"timeout"`
	Enabled bool          `mapstructure:"enabled"`
}

// KeypadConfig describes the matrix keypad and its backlight
type KeypadConfig struct {
	BacklightPin       string        `mapstructure:"backlight_pin"`
	Rows               []string      `mapstructure:"rows"`
	Cols               []string      `mapstructure:"cols"`
	Layout             []string      `mapstructure:"layout"`
	Debounce           time.Duration `mapstructure:"debounce"`
	BacklightActiveLow bool          `mapstructure:"backlight_active_low"`
	Enabled            bool          `mapstructure:"enabled"`
}

// PollingConfig holds the monitor timings and limits
type PollingConfig struct {
	Terminator      string        `mapstructure:"terminator"`
	DuplicateWindow time.Duration `mapstructure:"duplicate_window"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	KeyFlash        time.Duration `mapstructure:"key_flash"`
	SubmitFlash     time.Duration `mapstructure:"submit_flash"`
	Interval        time.Duration `mapstructure:"interval"`
	Capacity        int           `mapstructure:"capacity"`
}

// LogConfig sets the diagnostic log level
type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	pc := polling.DefaultConfig()

	v.SetDefault("serial.port", "/dev/serial0")
	v.SetDefault("serial.baud", status.DefaultBaudRate)

	v.SetDefault("card.enabled", true)
	v.SetDefault("card.driver", hardware.DriverPN532UART)
	v.SetDefault("card.device", "")
	v.SetDefault("card.baud", 115200)
	v.SetDefault("card.reset_pin", "GPIO25")
	v.SetDefault("card.irq_pin", "GPIO24")
	v.SetDefault("card.timeout", time.Duration(0))

	v.SetDefault("keypad.enabled", true)
	v.SetDefault("keypad.rows", []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19"})
	v.SetDefault("keypad.cols", []string{"GPIO12", "GPIO16", "GPIO20"})
	v.SetDefault("keypad.layout", hardware.DefaultLayout)
	v.SetDefault("keypad.debounce", hardware.DefaultDebounce)
	v.SetDefault("keypad.backlight_pin", "GPIO26")
	v.SetDefault("keypad.backlight_active_low", false)

	v.SetDefault("polling.duplicate_window", pc.DuplicateWindow)
	v.SetDefault("polling.idle_timeout", pc.IdleTimeout)
	v.SetDefault("polling.capacity", pc.Capacity)
	v.SetDefault("polling.terminator", string(pc.Terminator))
	v.SetDefault("polling.key_flash", pc.KeyFlash)
	v.SetDefault("polling.submit_flash", pc.SubmitFlash)
	v.SetDefault("polling.interval", 5*time.Millisecond)

	v.SetDefault("log.level", zerolog.InfoLevel.String())
}

// flag name to config key
var flagKeys = map[string]string{
	"serial-port":    "serial.port",
	"serial-baud":    "serial.baud",
	"card-enabled":   "card.enabled",
	"card-driver":    "card.driver",
	"card-device":    "card.device",
	"keypad-enabled": "keypad.enabled",
	"log-level":      "log.level",
}

// NewFlagSet returns the flags Load understands, plus the CLI-only
// --list-ports and --debug switches
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "config file (YAML or TOML)")
	fs.String("serial-port", "/dev/serial0", "status serial port")
	fs.Int("serial-baud", status.DefaultBaudRate, "status serial baud rate")
	fs.Bool("card-enabled", true, "poll the card reader")
	fs.String("card-driver", hardware.DriverPN532UART,
		"card reader driver: pn532-uart, pn532-i2c or rc522")
	fs.String("card-device", "",
		"card reader serial port, I2C bus or SPI port; empty probes for a PN532")
	fs.Bool("keypad-enabled", true, "poll the keypad")
	fs.String("log-level", zerolog.InfoLevel.String(), "log level")
	fs.Bool("debug", false, "shorthand for --log-level=debug")
	fs.Bool("list-ports", false, "list serial ports and exit")
	return fs
}

// Load builds the configuration. fs must already be parsed; a nil fs reads
// only defaults, the config file search path and the environment.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFile string
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("tapkey")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/tapkey")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}

// Monitor converts the polling section to a monitor configuration
func (c *PollingConfig) Monitor() *polling.Config {
	pc := polling.DefaultConfig()
	pc.DuplicateWindow = c.DuplicateWindow
	pc.IdleTimeout = c.IdleTimeout
	pc.KeyFlash = c.KeyFlash
	pc.SubmitFlash = c.SubmitFlash
	pc.Capacity = c.Capacity
	if len(c.Terminator) == 1 {
		pc.Terminator = c.Terminator[0]
	}
	return pc
}

// LogLevel parses the configured level
func (c *Config) LogLevel() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	return level, nil
}

// Validate rejects settings the station cannot start with
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Serial.Port == "" {
		invalid("serial.port is required")
	}
	if c.Serial.Baud <= 0 {
		invalid("serial.baud must be positive, got %d", c.Serial.Baud)
	}

	if c.Card.Enabled {
		switch c.Card.Driver {
		case hardware.DriverPN532UART:
			if c.Card.Device != "" && c.Card.Device == c.Serial.Port {
				invalid("card.device and serial.port are both %s", c.Card.Device)
			}
			if c.Card.Baud < 0 {
				invalid("card.baud must not be negative, got %d", c.Card.Baud)
			}
		case hardware.DriverPN532I2C:
		case hardware.DriverRC522:
			if c.Card.Device == "" {
				invalid("card.device is required for %s", c.Card.Driver)
			}
			if c.Card.ResetPin == "" || c.Card.IRQPin == "" {
				invalid("card.reset_pin and card.irq_pin are required for %s", c.Card.Driver)
			}
		default:
			invalid("card.driver %q is not one of %s, %s, %s", c.Card.Driver,
				hardware.DriverPN532UART, hardware.DriverPN532I2C, hardware.DriverRC522)
		}
		if c.Card.Timeout < 0 {
			invalid("card.timeout must not be negative")
		}
	}

	if c.Keypad.Enabled {
		if len(c.Keypad.Rows) == 0 || len(c.Keypad.Cols) == 0 {
			invalid("keypad.rows and keypad.cols are required")
		}
		if len(c.Keypad.Layout) != len(c.Keypad.Rows) {
			invalid("keypad.layout has %d rows for %d row pins", len(c.Keypad.Layout), len(c.Keypad.Rows))
		}
		for i, row := range c.Keypad.Layout {
			if len(row) != len(c.Keypad.Cols) {
				invalid("keypad.layout row %d has %d keys for %d column pins", i, len(row), len(c.Keypad.Cols))
			}
		}
		if c.Keypad.Debounce < 0 {
			invalid("keypad.debounce must not be negative")
		}
	}

	if len(c.Polling.Terminator) != 1 {
		invalid("polling.terminator must be a single character, got %q", c.Polling.Terminator)
	}
	if c.Polling.Interval < 0 {
		invalid("polling.interval must not be negative")
	}
	if err := c.Polling.Monitor().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: polling: %w", ErrInvalid, err))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

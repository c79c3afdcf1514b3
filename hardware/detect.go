package hardware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-tapkey/detection"
	"github.com/ZaparooProject/go-tapkey/pn532"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// DefaultProbeTimeout bounds the firmware version exchange with each
// candidate during auto-detection
const DefaultProbeTimeout = 500 * time.Millisecond

// ErrNoPN532Found is returned when no candidate port or bus answers
var ErrNoPN532Found = errors.New("no PN532 found")

// candidates lists the places a PN532 on driver may be attached: serial
// ports from the enumerator for UART, registered buses for I2C.
func candidates(driver string, opts *detection.Options) ([]string, error) {
	if opts == nil {
		opts = detection.DefaultOptions()
	}

	switch driver {
	case DriverPN532UART:
		ports, err := detection.ListPorts(opts)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(ports))
		for _, p := range ports {
			names = append(names, p.Name)
		}
		return names, nil
	case DriverPN532I2C:
		if err := Init(); err != nil {
			return nil, err
		}
		var names []string
		for _, ref := range i2creg.All() {
			if detection.IsPathIgnored(ref.Name, opts.IgnorePaths) {
				continue
			}
			names = append(names, ref.Name)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// probe opens each candidate in turn and returns the first device whose
// firmware version request succeeds. Candidates that fail are closed.
func probe(
	ctx context.Context,
	names []string,
	open func(name string) (pn532.Transport, error),
	timeout time.Duration,
	opts ...pn532.Option,
) (*pn532.Device, string, error) {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	opts = append([]pn532.Option{
		pn532.WithTimeout(timeout),
		pn532.WithInitRetries(0, 0),
	}, opts...)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		t, err := open(name)
		if err != nil {
			log.Debug().Err(err).Str("device", name).Msg("PN532 candidate did not open")
			continue
		}

		dev, err := pn532.New(t, opts...)
		if err != nil {
			_ = t.Close()
			return nil, "", err
		}

		probeCtx, cancel := context.WithTimeout(ctx, 2*timeout)
		err = dev.Init(probeCtx)
		cancel()
		if err != nil {
			log.Debug().Err(err).Str("device", name).Msg("no PN532 on candidate")
			_ = dev.Close()
			continue
		}

		log.Info().Str("device", name).Msg("PN532 detected")
		return dev, name, nil
	}

	return nil, "", fmt.Errorf("%w among %d candidates", ErrNoPN532Found, len(names))
}

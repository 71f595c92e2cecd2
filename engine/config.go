package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/cedinu/flexicart-control/cart"
	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/ninepin"
	"github.com/cedinu/flexicart-control/protocol"
)

// Default timing values.
const (
	DefaultInactivityGap   = 50 * time.Millisecond  // silence that ends a response
	DefaultResponseTimeout = 1 * time.Second        // wait for the first byte and overall ceiling
	DefaultPollInterval    = 500 * time.Millisecond // delay before each Macro status poll
	DefaultMaxPollAttempts = 60
	DefaultScanTimeout     = 200 * time.Millisecond // per-probe response timeout
	DefaultProbeDelay      = 50 * time.Millisecond  // gap between consecutive probes
)

// Range limits.
const (
	MinInactivityGap = 1 * time.Millisecond
	MaxInactivityGap = 5 * time.Second

	MinResponseTimeout = 10 * time.Millisecond
	MaxResponseTimeout = 120 * time.Second

	MaxPollInterval = 60 * time.Second
	MaxPollAttempts = 10000

	MaxProbeDelay = 10 * time.Second
)

// Config holds the engine configuration shared by every endpoint executor.
type Config struct {
	inactivityGap   time.Duration
	responseTimeout time.Duration

	pollInterval    time.Duration
	maxPollAttempts int

	scanTimeout time.Duration
	probeDelay  time.Duration

	responseProfile protocol.ResponseProfile
	encoder         protocol.Encoder
	catalog         *protocol.Catalog

	logger logger.Logger
}

// NewConfig creates a configuration for the cart-robot protocol with the
// two's-complement checksum and DefaultResponseProfile, then applies opts in
// order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		inactivityGap:   DefaultInactivityGap,
		responseTimeout: DefaultResponseTimeout,
		pollInterval:    DefaultPollInterval,
		maxPollAttempts: DefaultMaxPollAttempts,
		scanTimeout:     DefaultScanTimeout,
		probeDelay:      DefaultProbeDelay,
		responseProfile: protocol.DefaultResponseProfile,
		encoder:         cart.Codec{Algorithm: cart.ChecksumSum},
		catalog:         cart.Catalog,
		logger:          logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.inactivityGap >= cfg.responseTimeout {
		return nil, fmt.Errorf("engine: inactivity gap %v must be shorter than response timeout %v",
			cfg.inactivityGap, cfg.responseTimeout)
	}

	return cfg, nil
}

// --- Getters ---

// InactivityGap returns the silence after which a response is considered complete.
func (cfg *Config) InactivityGap() time.Duration { return cfg.inactivityGap }

// ResponseTimeout returns the default response timeout.
func (cfg *Config) ResponseTimeout() time.Duration { return cfg.responseTimeout }

// PollInterval returns the delay before each Macro status poll.
func (cfg *Config) PollInterval() time.Duration { return cfg.pollInterval }

// MaxPollAttempts returns the number of status polls before a Macro command times out.
func (cfg *Config) MaxPollAttempts() int { return cfg.maxPollAttempts }

// ScanTimeout returns the per-probe response timeout.
func (cfg *Config) ScanTimeout() time.Duration { return cfg.scanTimeout }

// ProbeDelay returns the delay between consecutive scan probes.
func (cfg *Config) ProbeDelay() time.Duration { return cfg.probeDelay }

// ResponseProfile returns the ACK/NACK/BUSY byte values.
func (cfg *Config) ResponseProfile() protocol.ResponseProfile { return cfg.responseProfile }

// Encoder returns the packet encoder.
func (cfg *Config) Encoder() protocol.Encoder { return cfg.encoder }

// Catalog returns the command catalog.
func (cfg *Config) Catalog() *protocol.Catalog { return cfg.catalog }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// ReadPolicy returns the end-of-response policy for the given timeout.
// A non-positive timeout selects the configured response timeout.
func (cfg *Config) ReadPolicy(timeout time.Duration) ReadPolicy {
	if timeout <= 0 {
		timeout = cfg.responseTimeout
	}

	return ReadPolicy{InactivityGap: cfg.inactivityGap, Timeout: timeout}
}

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithInactivityGap sets the silence that ends a response.
func WithInactivityGap(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinInactivityGap || d > MaxInactivityGap {
			return fmt.Errorf("engine: inactivity gap %v out of range [%v, %v]", d, MinInactivityGap, MaxInactivityGap)
		}
		cfg.inactivityGap = d

		return nil
	})
}

// WithResponseTimeout sets the default response timeout.
func WithResponseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinResponseTimeout || d > MaxResponseTimeout {
			return fmt.Errorf("engine: response timeout %v out of range [%v, %v]", d, MinResponseTimeout, MaxResponseTimeout)
		}
		cfg.responseTimeout = d

		return nil
	})
}

// WithPollInterval sets the delay before each Macro status poll.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxPollInterval {
			return fmt.Errorf("engine: poll interval %v out of range [0, %v]", d, MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithMaxPollAttempts sets how many status polls a Macro command may issue.
func WithMaxPollAttempts(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 1 || n > MaxPollAttempts {
			return fmt.Errorf("engine: max poll attempts %d out of range [1, %d]", n, MaxPollAttempts)
		}
		cfg.maxPollAttempts = n

		return nil
	})
}

// WithScanTimeout sets the per-probe response timeout used by scans.
func WithScanTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinResponseTimeout || d > MaxResponseTimeout {
			return fmt.Errorf("engine: scan timeout %v out of range [%v, %v]", d, MinResponseTimeout, MaxResponseTimeout)
		}
		cfg.scanTimeout = d

		return nil
	})
}

// WithProbeDelay sets the delay between consecutive scan probes.
func WithProbeDelay(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxProbeDelay {
			return fmt.Errorf("engine: probe delay %v out of range [0, %v]", d, MaxProbeDelay)
		}
		cfg.probeDelay = d

		return nil
	})
}

// WithResponseProfile sets the ACK/NACK/BUSY byte values.
func WithResponseProfile(p protocol.ResponseProfile) Option {
	return optFunc(func(cfg *Config) error {
		if err := p.Validate(); err != nil {
			return err
		}
		cfg.responseProfile = p

		return nil
	})
}

// WithChecksumAlgorithm selects the cart packet checksum. It implies the
// cart-robot encoder.
func WithChecksumAlgorithm(alg cart.ChecksumAlgorithm) Option {
	return optFunc(func(cfg *Config) error {
		if alg != cart.ChecksumSum && alg != cart.ChecksumXOR {
			return fmt.Errorf("engine: unknown checksum algorithm %s", alg)
		}
		cfg.encoder = cart.Codec{Algorithm: alg}

		return nil
	})
}

// WithNinePin switches the engine to the VTR protocol: 9-pin packets and the
// VTR command catalog.
func WithNinePin() Option {
	return optFunc(func(cfg *Config) error {
		cfg.encoder = ninepin.Codec{}
		cfg.catalog = ninepin.Catalog

		return nil
	})
}

// WithEncoder sets a custom packet encoder.
func WithEncoder(enc protocol.Encoder) Option {
	return optFunc(func(cfg *Config) error {
		if enc == nil {
			return errors.New("engine: encoder must not be nil")
		}
		cfg.encoder = enc

		return nil
	})
}

// WithCatalog sets a custom command catalog.
func WithCatalog(c *protocol.Catalog) Option {
	return optFunc(func(cfg *Config) error {
		if c == nil {
			return errors.New("engine: catalog must not be nil")
		}
		cfg.catalog = c

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("engine: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

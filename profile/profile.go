// Package profile loads per-device protocol profiles from YAML.
//
// Firmware revisions disagree on the checksum algorithm, the acknowledgement
// byte and line timing, so these are configured per device rather than
// assumed. A profile file holds any number of named profiles:
//
//	default: flexicart
//	profiles:
//	  flexicart:
//	    protocol: cart
//	    checksum: sum
//	    ack: 0x04
//	    inactivity_gap: 50ms
//	    serial:
//	      baud_rate: 38400
//	      parity: odd
//	  bvw:
//	    protocol: ninepin
//	    response_timeout: 500ms
//
// Unset fields keep the engine and transport defaults.
package profile

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cedinu/flexicart-control/cart"
	"github.com/cedinu/flexicart-control/engine"
	"github.com/cedinu/flexicart-control/protocol"
	"github.com/cedinu/flexicart-control/transport"
)

// Protocol names.
const (
	ProtocolCart    = "cart"
	ProtocolNinePin = "ninepin"
)

var ErrProfileNotFound = errors.New("profile: not found")

// File is the content of a profile file.
type File struct {
	Default  string              `yaml:"default"`
	Profiles map[string]*Profile `yaml:"profiles"`
}

// Profile describes how to talk to one kind of device.
type Profile struct {
	Name string `yaml:"-"`

	Protocol string `yaml:"protocol"`
	Checksum string `yaml:"checksum"`

	Ack  *uint8 `yaml:"ack"`
	Nack *uint8 `yaml:"nack"`
	Busy *uint8 `yaml:"busy"`

	InactivityGap   time.Duration `yaml:"inactivity_gap"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"`
	ScanTimeout     time.Duration `yaml:"scan_timeout"`
	ProbeDelay      time.Duration `yaml:"probe_delay"`

	Serial SerialSettings `yaml:"serial"`
}

// SerialSettings overrides transport.DefaultSerialConfig field by field.
type SerialSettings struct {
	BaudRate    int           `yaml:"baud_rate"`
	DataBits    int           `yaml:"data_bits"`
	Parity      string        `yaml:"parity"`
	StopBits    int           `yaml:"stop_bits"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// Load reads and parses the profile file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile: %s: %w", path, err)
	}

	return f, nil
}

// Parse parses profile YAML and validates every profile in it.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("profile: parse: %w", err)
	}

	for name, p := range f.Profiles {
		if p == nil {
			p = &Profile{}
			f.Profiles[name] = p
		}
		p.Name = name

		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	if f.Default != "" {
		if _, ok := f.Profiles[f.Default]; !ok {
			return nil, fmt.Errorf("profile: default %q is not defined", f.Default)
		}
	}

	return &f, nil
}

// Names returns the profile names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Get returns the named profile. An empty name selects the default profile,
// or the only profile when the file defines exactly one.
func (f *File) Get(name string) (*Profile, error) {
	if name == "" {
		name = f.Default
	}
	if name == "" && len(f.Profiles) == 1 {
		for _, p := range f.Profiles {
			return p, nil
		}
	}

	p, ok := f.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}

	return p, nil
}

// Validate checks the protocol, checksum and response bytes.
func (p *Profile) Validate() error {
	switch strings.ToLower(p.Protocol) {
	case "", ProtocolCart, ProtocolNinePin:
	default:
		return fmt.Errorf("profile %q: unknown protocol %q", p.Name, p.Protocol)
	}

	if _, err := cart.ParseChecksumAlgorithm(p.Checksum); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}

	if err := p.ResponseProfile().Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}

	return nil
}

// IsNinePin reports whether the profile selects the VTR protocol.
func (p *Profile) IsNinePin() bool {
	return strings.EqualFold(p.Protocol, ProtocolNinePin)
}

// ResponseProfile returns the control bytes, with unset ones taken from
// protocol.DefaultResponseProfile.
func (p *Profile) ResponseProfile() protocol.ResponseProfile {
	rp := protocol.DefaultResponseProfile
	if p.Ack != nil {
		rp.Ack = *p.Ack
	}
	if p.Nack != nil {
		rp.Nack = *p.Nack
	}
	if p.Busy != nil {
		rp.Busy = *p.Busy
	}

	return rp
}

// Options converts the profile into engine options.
func (p *Profile) Options() ([]engine.Option, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	opts := []engine.Option{engine.WithResponseProfile(p.ResponseProfile())}

	if p.IsNinePin() {
		opts = append(opts, engine.WithNinePin())
	} else {
		alg, _ := cart.ParseChecksumAlgorithm(p.Checksum)
		opts = append(opts, engine.WithChecksumAlgorithm(alg))
	}

	if p.InactivityGap != 0 {
		opts = append(opts, engine.WithInactivityGap(p.InactivityGap))
	}
	if p.ResponseTimeout != 0 {
		opts = append(opts, engine.WithResponseTimeout(p.ResponseTimeout))
	}
	if p.PollInterval != 0 {
		opts = append(opts, engine.WithPollInterval(p.PollInterval))
	}
	if p.MaxPollAttempts != 0 {
		opts = append(opts, engine.WithMaxPollAttempts(p.MaxPollAttempts))
	}
	if p.ScanTimeout != 0 {
		opts = append(opts, engine.WithScanTimeout(p.ScanTimeout))
	}
	if p.ProbeDelay != 0 {
		opts = append(opts, engine.WithProbeDelay(p.ProbeDelay))
	}

	return opts, nil
}

// SerialConfig returns transport.DefaultSerialConfig with the profile's
// serial overrides applied.
func (p *Profile) SerialConfig() transport.SerialConfig {
	cfg := transport.DefaultSerialConfig
	s := p.Serial

	if s.BaudRate != 0 {
		cfg.BaudRate = s.BaudRate
	}
	if s.DataBits != 0 {
		cfg.DataBits = s.DataBits
	}
	if s.Parity != "" {
		cfg.Parity = s.Parity
	}
	if s.StopBits != 0 {
		cfg.StopBits = s.StopBits
	}
	if s.ReadTimeout != 0 {
		cfg.ReadTimeout = s.ReadTimeout
	}

	return cfg
}

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedinu/flexicart-control/cart"
	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/ninepin"
	"github.com/cedinu/flexicart-control/protocol"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultInactivityGap, cfg.InactivityGap())
	assert.Equal(t, DefaultResponseTimeout, cfg.ResponseTimeout())
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval())
	assert.Equal(t, DefaultMaxPollAttempts, cfg.MaxPollAttempts())
	assert.Equal(t, DefaultScanTimeout, cfg.ScanTimeout())
	assert.Equal(t, DefaultProbeDelay, cfg.ProbeDelay())
	assert.Equal(t, protocol.DefaultResponseProfile, cfg.ResponseProfile())
	assert.Equal(t, cart.Codec{Algorithm: cart.ChecksumSum}, cfg.Encoder())
	assert.Same(t, cart.Catalog, cfg.Catalog())
	assert.NotNil(t, cfg.GetLogger())
}

func TestNewConfig_Options(t *testing.T) {
	l := logger.NewMockLogger()
	cfg, err := NewConfig(
		WithInactivityGap(20*time.Millisecond),
		WithResponseTimeout(2*time.Second),
		WithPollInterval(0),
		WithMaxPollAttempts(3),
		WithScanTimeout(time.Second),
		WithProbeDelay(10*time.Millisecond),
		WithResponseProfile(protocol.EarlyFirmwareResponseProfile),
		WithChecksumAlgorithm(cart.ChecksumXOR),
		WithLogger(l),
	)
	require.NoError(t, err)

	assert.Equal(t, 20*time.Millisecond, cfg.InactivityGap())
	assert.Equal(t, 2*time.Second, cfg.ResponseTimeout())
	assert.Equal(t, time.Duration(0), cfg.PollInterval())
	assert.Equal(t, 3, cfg.MaxPollAttempts())
	assert.Equal(t, time.Second, cfg.ScanTimeout())
	assert.Equal(t, 10*time.Millisecond, cfg.ProbeDelay())
	assert.Equal(t, byte(0x10), cfg.ResponseProfile().Ack)
	assert.Equal(t, cart.Codec{Algorithm: cart.ChecksumXOR}, cfg.Encoder())
	assert.Same(t, l, cfg.GetLogger())
}

func TestNewConfig_NinePin(t *testing.T) {
	cfg, err := NewConfig(WithNinePin())
	require.NoError(t, err)

	assert.Equal(t, ninepin.Codec{}, cfg.Encoder())
	assert.Same(t, ninepin.Catalog, cfg.Catalog())
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"gap too small", WithInactivityGap(0)},
		{"gap too large", WithInactivityGap(MaxInactivityGap + 1)},
		{"timeout too small", WithResponseTimeout(time.Millisecond)},
		{"timeout too large", WithResponseTimeout(MaxResponseTimeout + 1)},
		{"negative poll interval", WithPollInterval(-1)},
		{"zero poll attempts", WithMaxPollAttempts(0)},
		{"too many poll attempts", WithMaxPollAttempts(MaxPollAttempts + 1)},
		{"scan timeout too small", WithScanTimeout(0)},
		{"negative probe delay", WithProbeDelay(-time.Millisecond)},
		{"duplicate profile bytes", WithResponseProfile(protocol.ResponseProfile{Ack: 0x04, Nack: 0x04, Busy: 0x06})},
		{"unknown checksum", WithChecksumAlgorithm(cart.ChecksumAlgorithm(99))},
		{"nil encoder", WithEncoder(nil)},
		{"nil catalog", WithCatalog(nil)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestNewConfig_GapMustBeShorterThanTimeout(t *testing.T) {
	_, err := NewConfig(WithInactivityGap(time.Second), WithResponseTimeout(time.Second))
	assert.Error(t, err)
}

func TestConfig_ReadPolicy(t *testing.T) {
	cfg := newTestConfig(t)

	assert.Equal(t, ReadPolicy{InactivityGap: 5 * time.Millisecond, Timeout: 100 * time.Millisecond}, cfg.ReadPolicy(0))
	assert.Equal(t, 42*time.Millisecond, cfg.ReadPolicy(42*time.Millisecond).Timeout)
}

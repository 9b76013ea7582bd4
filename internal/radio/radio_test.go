package radio

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lamprichauns/lamp-os/internal/config"
	"github.com/Lamprichauns/lamp-os/internal/errors"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

func TestDeriveAddress(t *testing.T) {
	a := DeriveAddress("host/porch")
	require.Len(t, a, AddressLen)
	assert.Equal(t, a, DeriveAddress("host/porch"), "derivation is stable")
	assert.NotEqual(t, a, DeriveAddress("host/garden"))

	assert.Equal(t, byte(0x02), a[0]&0x02, "locally administered")
	assert.Zero(t, a[0]&0x01, "unicast")
}

func TestResolveAddress(t *testing.T) {
	addr, err := ResolveAddress("a0:b1:c2:d3:e4:f5", "porch")
	require.NoError(t, err)
	assert.Equal(t, "a0b1c2d3e4f5", lamp.PeerIDFromAddress(addr).String())

	derived, err := ResolveAddress("", "porch")
	require.NoError(t, err)
	assert.Len(t, derived, AddressLen)

	_, err = ResolveAddress("nope", "porch")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "radio.address")
}

func TestNewLoopback(t *testing.T) {
	r, err := New(config.RadioConfig{Driver: config.RadioDriverLoopback, Address: "000000000001"}, "solo", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, "000000000001", lamp.PeerIDFromAddress(r.Address()).String())

	require.NoError(t, r.Advertise(context.Background(), []byte{1}))
	require.NoError(t, r.Close())
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(config.RadioConfig{Driver: "carrier-pigeon"}, "solo", slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown radio driver")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "000000000001 (000001000000)", Describe([]byte{0, 0, 1, 0, 0, 0}))
}

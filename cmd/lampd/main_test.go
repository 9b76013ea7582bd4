package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lamprichauns/lamp-os/internal/config"
	"github.com/Lamprichauns/lamp-os/internal/http/handlers"
	"github.com/Lamprichauns/lamp-os/internal/radio/loopback"
	"github.com/Lamprichauns/lamp-os/internal/utils"
	"github.com/Lamprichauns/lamp-os/pkg/client"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

func TestApplyFlags(t *testing.T) {
	flags := pflag.NewFlagSet("lampd", pflag.ContinueOnError)
	registerFlags(flags)
	require.NoError(t, flags.Parse([]string{"--name", "porch", "--radio", "loopback", "--log-level", "debug"}))

	cfg := config.New(viper.New())
	applyFlags(cfg, flags)

	assert.Equal(t, "porch", cfg.Lamp.Name)
	assert.Equal(t, config.RadioDriverLoopback, cfg.Radio.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "porch", cfg.Get("lamp.name"))
	assert.Equal(t, config.LogFormatText, cfg.Logging.Format, "unset flags keep the config value")
	assert.Equal(t, config.DefaultAPIListenAddress, cfg.API.ListenAddress)
}

func TestLoadDefaultConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load(config.DaemonConfigFilename, "")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, config.DefaultLampName, cfg.Lamp.Name)
	require.NoError(t, cfg.Validate())
}

func testConfig(t *testing.T, name string) *config.Config {
	t.Helper()
	cfg := config.New(viper.New())
	cfg.Lamp.Name = name
	cfg.Lamp.BaseColor = "#0000ff"
	cfg.Radio.Driver = config.RadioDriverLoopback
	cfg.Radio.AdvertiseIntervalMs = 100
	cfg.Server.UnixSocket = filepath.Join(t.TempDir(), "lampd.sock")
	cfg.API.ListenAddress = ""
	cfg.API.MDNS = false
	return cfg
}

// startDaemon runs a daemon on air until the test ends.
func startDaemon(t *testing.T, air *loopback.Air, name string, address ...byte) (*daemon, *client.Client) {
	t.Helper()
	logger, ctl := utils.SetupLoggerTo(io.Discard, "info", "text")
	cfg := testConfig(t, name)

	d, err := newDaemon(cfg, logger, ctl, air.NewRadio(address), handlers.VersionInfo{Version: "test"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop")
		}
	})

	c := client.New(slog.New(slog.DiscardHandler), cfg.Server.UnixSocket)
	require.Eventually(t, func() bool { return c.Ping() == nil }, 2*time.Second, 10*time.Millisecond)
	return d, c
}

func TestDaemonServesStatus(t *testing.T) {
	air := loopback.NewAir(nil)
	_, c := startDaemon(t, air, "porch", 0x0a, 0, 0, 0, 0, 1)

	status, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, "porch", status["name"])
	assert.Equal(t, "#0000ff00", status["base_color"])

	v, err := c.Version()
	require.NoError(t, err)
	assert.Equal(t, "test", v["version"])
}

func TestDaemonsDiscoverEachOther(t *testing.T) {
	air := loopback.NewAir(nil)
	a, clientA := startDaemon(t, air, "porch", 0x0a, 0, 0, 0, 0, 1)
	b, _ := startDaemon(t, air, "garden", 0x0b, 0, 0, 0, 0, 2)

	idB := lamp.PeerIDFromAddress(b.radio.Address())
	require.Eventually(t, func() bool {
		air.Pulse()
		_, ok := a.network.Lamp(idB)
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	peer, err := clientA.GetLamp(idB.String())
	require.NoError(t, err)
	assert.Equal(t, "garden", peer["name"])

	// A colour override sent from A reaches B
	_, err = clientA.Broadcast("BASE_OVERRIDE", "", "#ff0000", 10)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		air.Pulse()
		base, _ := b.lamp.Colors()
		return base == lamp.Color{R: 0xff}
	}, 3*time.Second, 20*time.Millisecond)
}

func TestApplyConfig(t *testing.T) {
	air := loopback.NewAir(nil)
	d, _ := startDaemon(t, air, "porch", 0x0a, 0, 0, 0, 0, 1)

	next := testConfig(t, "renamed")
	next.Lamp.ShadeColor = "#123456"
	next.Lamp.Version = 7
	next.Logging.Level = "debug"
	d.applyConfig(next)

	id := d.lamp.Identity()
	assert.Equal(t, "porch", id.Name, "rename waits for a restart")
	assert.Equal(t, uint16(7), id.Version)
	_, shade := d.lamp.Colors()
	assert.Equal(t, lamp.Color{R: 0x12, G: 0x34, B: 0x56}, shade)
	assert.Equal(t, slog.LevelDebug, d.logCtl.Level())

	attr, ok := findAttribute(d.network.Attributes(), lamp.CodeVersion)
	require.True(t, ok)
	assert.Equal(t, []byte{0, 7}, attr.Value)

	bad := testConfig(t, "porch")
	bad.Lamp.BaseColor = "not a colour"
	d.applyConfig(bad)
	assert.Equal(t, uint16(7), d.lamp.Identity().Version, "invalid identity is ignored")
}

func findAttribute(attrs []lamp.Attribute, code lamp.Code) (lamp.Attribute, bool) {
	for _, a := range attrs {
		if a.Code == code {
			return a, true
		}
	}
	return lamp.Attribute{}, false
}

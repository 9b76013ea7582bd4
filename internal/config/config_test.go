package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lamprichauns/lamp-os/internal/errors"
	"github.com/Lamprichauns/lamp-os/pkg/lamp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	cfg, err := Load("test.yaml", configPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultLampName, cfg.Lamp.Name)
	assert.Equal(t, int(lamp.DefaultMagicNumber), cfg.Network.MagicNumber)
	assert.Equal(t, 1, cfg.Network.TTLAdjustment)
	assert.Equal(t, RadioDriverMulticast, cfg.Radio.Driver)
	assert.Equal(t, ":9420", cfg.API.ListenAddress)
	assert.True(t, cfg.API.MDNS)
	assert.Equal(t, configPath, cfg.Path())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lampd.yaml")
	content := `
lamp:
  name: Sunny
  base_color: "#ff0000"
radio:
  driver: loopback
network:
  ttl_adjustment: 2
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load("lampd.yaml", configPath)
	require.NoError(t, err)
	assert.Equal(t, "Sunny", cfg.Lamp.Name)
	assert.Equal(t, "#ff0000", cfg.Lamp.BaseColor)
	assert.Equal(t, DefaultShadeColor, cfg.Lamp.ShadeColor)
	assert.Equal(t, RadioDriverLoopback, cfg.Radio.Driver)
	assert.Equal(t, 2, cfg.Network.TTLAdjustment)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("LAMP_LAMP_NAME", "envlmp")

	cfg, err := Load("test.yaml", filepath.Join(t.TempDir(), "test.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "envlmp", cfg.Lamp.Name)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("not: [valid: yaml"), 0644))

	_, err := Load("bad.yaml", configPath)
	assert.Error(t, err)
}

func TestSaveAndLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "test.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)
	cfg := New(v)
	cfg.Lamp.Name = "Saved"
	cfg.Lamp.ShadeColor = "#123456"
	cfg.Radio.AdvertiseIntervalMs = 250

	require.NoError(t, cfg.Save())

	cfg2, err := Load("test.yaml", configPath)
	require.NoError(t, err)
	assert.Equal(t, "Saved", cfg2.Lamp.Name)
	assert.Equal(t, "#123456", cfg2.Lamp.ShadeColor)
	assert.Equal(t, 250, cfg2.Radio.AdvertiseIntervalMs)
	assert.Equal(t, DefaultBaseColor, cfg2.Lamp.BaseColor)
}

func TestGetSet(t *testing.T) {
	cfg := New(viper.New())
	assert.Equal(t, DefaultLampName, cfg.Get("lamp.name"))
	cfg.Set("lamp.name", "other")
	assert.Equal(t, "other", cfg.Get("lamp.name"))

	var empty Config
	assert.Nil(t, empty.Get("lamp.name"))
	empty.Set("lamp.name", "ignored")
	assert.Error(t, empty.Save())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "empty name", modify: func(c *Config) { c.Lamp.Name = " " }},
		{name: "bad base colour", modify: func(c *Config) { c.Lamp.BaseColor = "green" }},
		{name: "bad shade colour", modify: func(c *Config) { c.Lamp.ShadeColor = "#12" }},
		{name: "version overflow", modify: func(c *Config) { c.Lamp.Version = 70000 }},
		{name: "negative magic", modify: func(c *Config) { c.Network.MagicNumber = -1 }},
		{name: "zero magic", modify: func(c *Config) { c.Network.MagicNumber = 0 }},
		{name: "magic overflow", modify: func(c *Config) { c.Network.MagicNumber = 0x10000 }},
		{name: "unknown driver", modify: func(c *Config) { c.Radio.Driver = "bluetooth" }},
		{name: "unicast group", modify: func(c *Config) { c.Radio.Group = "10.0.0.1" }},
		{name: "bad port", modify: func(c *Config) { c.Radio.Port = 0 }},
		{name: "short address", modify: func(c *Config) { c.Radio.Address = "abcd" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New(viper.New())
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalidInput(err))
		})
	}
}

func TestValidate_LoopbackIgnoresMulticastSettings(t *testing.T) {
	cfg := New(viper.New())
	cfg.Radio.Driver = RadioDriverLoopback
	cfg.Radio.Group = ""
	cfg.Radio.Port = 0
	assert.NoError(t, cfg.Validate())
}

func TestIdentity(t *testing.T) {
	cfg := New(viper.New())
	cfg.Lamp.Version = 415

	identity, err := cfg.Identity()
	require.NoError(t, err)
	assert.Equal(t, DefaultLampName, identity.Name)
	assert.Equal(t, uint16(415), identity.Version)
	assert.Equal(t, lamp.Color{G: 0xff}, identity.BaseColor)
	assert.Equal(t, lamp.White, identity.ShadeColor)

	cfg.Lamp.ShadeColor = "nope"
	_, err = cfg.Identity()
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "watch.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("lamp:\n  name: before\n"), 0644))

	cfg, err := Load("watch.yaml", configPath)
	require.NoError(t, err)

	changed := make(chan *Config, 4)
	cfg.Watch(func(next *Config) { changed <- next })

	require.NoError(t, os.WriteFile(configPath, []byte("lamp:\n  name: after\n"), 0644))

	select {
	case next := <-changed:
		assert.Equal(t, "after", next.Lamp.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration change was not observed")
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/Lamprichauns/lamp-os/pkg/lamp"
)

// Config represents the application configuration
type Config struct {
	Lamp    LampConfig    `mapstructure:"lamp"`
	Network NetworkConfig `mapstructure:"network"`
	Radio   RadioConfig   `mapstructure:"radio"`
	Server  ServerConfig  `mapstructure:"server"`
	API     APIConfig     `mapstructure:"api"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Internal viper instance
	v *viper.Viper
}

// LampConfig is the identity the lamp announces
type LampConfig struct {
	Name       string `mapstructure:"name"`
	BaseColor  string `mapstructure:"base_color"`
	ShadeColor string `mapstructure:"shade_color"`
	Version    int    `mapstructure:"version"`
}

// NetworkConfig tunes the gossip coordinator
type NetworkConfig struct {
	MagicNumber       int `mapstructure:"magic_number"`
	TTLAdjustment     int `mapstructure:"ttl_adjustment"`
	BroadcastTTL      int `mapstructure:"broadcast_ttl"`
	MonitorIntervalMs int `mapstructure:"monitor_interval_ms"`
}

// RadioConfig selects and configures the advertising transport
type RadioConfig struct {
	Driver              string `mapstructure:"driver"`
	Group               string `mapstructure:"group"`
	Port                int    `mapstructure:"port"`
	Interface           string `mapstructure:"interface"`
	Hops                int    `mapstructure:"hops"`
	Address             string `mapstructure:"address"` // hex, derived from hostname and lamp name when empty
	AdvertiseIntervalMs int    `mapstructure:"advertise_interval_ms"`
}

// ServerConfig represents the server configuration
type ServerConfig struct {
	UnixSocket string `mapstructure:"unix_socket"`
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	RateLimit     int    `mapstructure:"rate_limit"` // requests per minute per IP, 0 disables
	MDNS          bool   `mapstructure:"mdns"`
	Token         string `mapstructure:"token"` // bearer token for write endpoints, empty disables
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("lamp.name", DefaultLampName)
	v.SetDefault("lamp.base_color", DefaultBaseColor)
	v.SetDefault("lamp.shade_color", DefaultShadeColor)
	v.SetDefault("lamp.version", DefaultVersion)
	v.SetDefault("network.magic_number", int(lamp.DefaultMagicNumber))
	v.SetDefault("network.ttl_adjustment", 1)
	v.SetDefault("network.broadcast_ttl", DefaultBroadcastTTL)
	v.SetDefault("network.monitor_interval_ms", DefaultMonitorInterval.Milliseconds())
	v.SetDefault("radio.driver", RadioDriverMulticast)
	v.SetDefault("radio.group", DefaultMulticastGroup)
	v.SetDefault("radio.port", DefaultMulticastPort)
	v.SetDefault("radio.interface", "")
	v.SetDefault("radio.hops", DefaultMulticastHops)
	v.SetDefault("radio.address", "")
	v.SetDefault("radio.advertise_interval_ms", DefaultAdvertiseInterval.Milliseconds())
	v.SetDefault("server.unix_socket", GetRuntimeSocketPath())
	v.SetDefault("api.listen_address", DefaultAPIListenAddress)
	v.SetDefault("api.rate_limit", DefaultAPIRateLimit)
	v.SetDefault("api.mdns", true)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatText)
}

// New creates a Config backed by v, with defaults applied for anything v does not set
func New(v *viper.Viper) *Config {
	setDefaults(v)
	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		slog.Warn("Failed to decode configuration, using defaults", "error", err)
	}
	return cfg
}

// Load loads configuration from a file and environment variables.
// A missing file is not an error; an unreadable or invalid one is.
func Load(configName, configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		slog.Info("Using config file from command line", "path", configFile)
	} else {
		configPath := GetConfigPath(configName)
		v.SetConfigFile(configPath)

		if err := os.MkdirAll(GetConfigBaseDir(), 0755); err != nil {
			return nil, fmt.Errorf("error creating config directory: %w", err)
		}

		if _, err := os.Stat(configPath); err == nil {
			slog.Info("Using default config file", "path", configPath)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, nil
}

// Path returns the file the configuration is read from and saved to
func (c *Config) Path() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

func (c *Config) values() map[string]any {
	return map[string]any{
		"lamp.name":                   c.Lamp.Name,
		"lamp.base_color":             c.Lamp.BaseColor,
		"lamp.shade_color":            c.Lamp.ShadeColor,
		"lamp.version":                c.Lamp.Version,
		"network.magic_number":        c.Network.MagicNumber,
		"network.ttl_adjustment":      c.Network.TTLAdjustment,
		"network.broadcast_ttl":       c.Network.BroadcastTTL,
		"network.monitor_interval_ms": c.Network.MonitorIntervalMs,
		"radio.driver":                c.Radio.Driver,
		"radio.group":                 c.Radio.Group,
		"radio.port":                  c.Radio.Port,
		"radio.interface":             c.Radio.Interface,
		"radio.hops":                  c.Radio.Hops,
		"radio.address":               c.Radio.Address,
		"radio.advertise_interval_ms": c.Radio.AdvertiseIntervalMs,
		"server.unix_socket":          c.Server.UnixSocket,
		"api.listen_address":          c.API.ListenAddress,
		"api.rate_limit":              c.API.RateLimit,
		"api.mdns":                    c.API.MDNS,
		"api.token":                   c.API.Token,
		"logging.level":               c.Logging.Level,
		"logging.format":              c.Logging.Format,
	}
}

// Save saves the configuration to its file
func (c *Config) Save() error {
	if c.v == nil {
		return fmt.Errorf("configuration has no backing store")
	}
	logger := slog.Default()
	configPath := c.v.ConfigFileUsed()
	if configPath == "" {
		configPath = GetDaemonConfigPath()
	}

	logger.Info("Saving configuration", "path", configPath)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// A separate instance keeps the values out of c.v's override layer, which
	// would otherwise shadow later edits to the file.
	out := viper.New()
	out.SetConfigType("yaml")
	for key, value := range c.values() {
		out.Set(key, value)
	}

	if err := out.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	logger.Info("Configuration saved successfully", "path", configPath)
	return nil
}

// Watch calls fn with a freshly decoded Config each time the file changes.
// Changes that fail to decode or validate are logged and skipped.
func (c *Config) Watch(fn func(*Config)) {
	if c.v == nil {
		return
	}
	var mu sync.Mutex
	c.v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		next := &Config{v: c.v}
		if err := c.v.Unmarshal(next); err != nil {
			slog.Warn("Ignoring unreadable configuration change", "path", e.Name, "error", err)
			return
		}
		if err := next.Validate(); err != nil {
			slog.Warn("Ignoring invalid configuration change", "path", e.Name, "error", err)
			return
		}
		slog.Info("Configuration changed", "path", e.Name, "op", e.Op.String())
		fn(next)
	})
	c.v.WatchConfig()
}

// Get retrieves a value from the configuration
func (c *Config) Get(key string) any {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// Set sets a value in the configuration
func (c *Config) Set(key string, value any) {
	if c.v == nil {
		return
	}
	c.v.Set(key, value)
}

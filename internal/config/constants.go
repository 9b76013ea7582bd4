package config

import "time"

// Common constants shared between daemon and client
const (
	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "lamp"

	// DaemonConfigFilename is the base filename for daemon config
	DaemonConfigFilename = "lampd.yaml"

	// ClientConfigFilename is the base filename for client config
	ClientConfigFilename = "lampctl.yaml"

	// SocketFilename is the base filename for the Unix socket
	SocketFilename = "lampd.sock"

	// SystemConfigDir is used as-is when XDG_CONFIG_HOME points at it (systemd unit)
	SystemConfigDir = "/etc/lampd"

	// SystemRuntimeDir holds the socket when lampd runs as a system service
	SystemRuntimeDir = "/run/lampd"

	// EnvPrefix prefixes environment overrides, e.g. LAMP_LAMP_NAME
	EnvPrefix = "LAMP"

	// DefaultAPIListenAddress is the default HTTP API listen address
	DefaultAPIListenAddress = ":9420"

	// DefaultAPIRateLimit is the per-IP request budget per minute
	DefaultAPIRateLimit = 120

	// MDNSService is the DNS-SD service type lampd advertises its API under
	MDNSService = "_lampd._tcp"

	// MDNSDomain is the DNS-SD browse and register domain
	MDNSDomain = "local."
)

// Lamp defaults, matching the stock firmware configuration
const (
	DefaultLampName   = "lamp"
	DefaultBaseColor  = "#00ff00"
	DefaultShadeColor = "#ffffff"
	DefaultVersion    = 1
)

// Radio drivers
const (
	RadioDriverMulticast = "multicast"
	RadioDriverLoopback  = "loopback"
)

// Radio defaults
const (
	// DefaultMulticastGroup is an administratively scoped group
	DefaultMulticastGroup = "239.255.42.69"

	DefaultMulticastPort = 42069

	// DefaultMulticastHops bounds how far frames travel; RSSI is derived from it
	DefaultMulticastHops = 4
)

// Default timeouts and intervals
const (
	// DefaultAdvertiseInterval is the advertisement refresh period
	DefaultAdvertiseInterval = time.Second

	// MinAdvertiseInterval is the minimum allowed advertisement refresh period
	MinAdvertiseInterval = 100 * time.Millisecond

	// DefaultMonitorInterval is the period of the gossip monitor loop
	DefaultMonitorInterval = 50 * time.Millisecond

	// MinMonitorInterval is the minimum allowed monitor period
	MinMonitorInterval = 10 * time.Millisecond
)

// Gossip constraints
const (
	MinTTLAdjustment = 0
	MaxTTLAdjustment = 255

	DefaultBroadcastTTL = 4
)

// Logging constants
const (
	// LogLevelDebug represents debug log level
	LogLevelDebug = "debug"

	// LogLevelInfo represents info log level
	LogLevelInfo = "info"

	// LogLevelWarn represents warning log level
	LogLevelWarn = "warn"

	// LogLevelError represents error log level
	LogLevelError = "error"

	// LogFormatText represents text log format
	LogFormatText = "text"

	// LogFormatJSON represents JSON log format
	LogFormatJSON = "json"
)

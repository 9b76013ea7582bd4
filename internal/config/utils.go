package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// GetRuntimeDir returns the XDG runtime directory
func GetRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	uid := os.Getuid()
	return filepath.Join("/run/user", strconv.Itoa(uid))
}

// GetRuntimeSocketPath returns the full path to the Unix socket
// It checks the user's runtime directory first, then falls back to the system socket
func GetRuntimeSocketPath() string {
	userSocket := filepath.Join(GetRuntimeDir(), SocketFilename)

	if _, err := os.Stat(userSocket); err == nil {
		return userSocket
	}

	systemSocket := filepath.Join(SystemRuntimeDir, SocketFilename)
	if _, err := os.Stat(systemSocket); err == nil {
		return systemSocket
	}

	return userSocket
}

// GetConfigBaseDir returns the base directory for configuration files
func GetConfigBaseDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		// The systemd unit sets XDG_CONFIG_HOME to the system directory itself
		if dir == SystemConfigDir {
			return dir
		}
		return filepath.Join(dir, ConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", ConfigDirName)
}

// GetConfigPath returns the full path to a configuration file
func GetConfigPath(filename string) string {
	return filepath.Join(GetConfigBaseDir(), filename)
}

// GetDaemonConfigPath returns the full path to the daemon configuration file
func GetDaemonConfigPath() string {
	return GetConfigPath(DaemonConfigFilename)
}

// GetClientConfigPath returns the full path to the client configuration file
func GetClientConfigPath() string {
	return GetConfigPath(ClientConfigFilename)
}

// ValidateAdvertiseInterval converts a millisecond setting to a duration,
// clamped to the minimum allowed value
func ValidateAdvertiseInterval(ms int) time.Duration {
	d := time.Duration(ms) * time.Millisecond
	if d < MinAdvertiseInterval {
		return MinAdvertiseInterval
	}
	return d
}

// ValidateMonitorInterval converts a millisecond setting to a duration,
// clamped to the minimum allowed value
func ValidateMonitorInterval(ms int) time.Duration {
	d := time.Duration(ms) * time.Millisecond
	if d < MinMonitorInterval {
		return MinMonitorInterval
	}
	return d
}

// ValidateTTL clamps a ttl setting into a byte.
func ValidateTTL(ttl int) uint8 {
	switch {
	case ttl < MinTTLAdjustment:
		return MinTTLAdjustment
	case ttl > MaxTTLAdjustment:
		return MaxTTLAdjustment
	}
	return uint8(ttl)
}

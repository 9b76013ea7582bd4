package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigBaseDir(t *testing.T) {
	tests := []struct {
		name           string
		xdgConfigHome  string
		expectedSuffix string
	}{
		{
			name:           "system_service",
			xdgConfigHome:  "/etc/lampd",
			expectedSuffix: "/etc/lampd",
		},
		{
			name:           "user_default",
			xdgConfigHome:  "",
			expectedSuffix: "/.config/lamp",
		},
		{
			name:           "user_custom_xdg",
			xdgConfigHome:  "/home/user/myconfigs",
			expectedSuffix: "/home/user/myconfigs/lamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", tt.xdgConfigHome)

			result := GetConfigBaseDir()

			if tt.name == "user_default" {
				assert.True(t, filepath.IsAbs(result))
				assert.True(t, strings.HasSuffix(result, tt.expectedSuffix), "got %s", result)
			} else {
				assert.Equal(t, tt.expectedSuffix, result)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/lampd")
	assert.Equal(t, "/etc/lampd/lampd.yaml", GetDaemonConfigPath())

	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	assert.Equal(t, "/tmp/cfg/lamp/lampctl.yaml", GetClientConfigPath())
}

func TestGetRuntimeSocketPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	assert.Equal(t, dir, GetRuntimeDir())
	assert.Equal(t, filepath.Join(dir, SocketFilename), GetRuntimeSocketPath())
}

func TestValidateIntervals(t *testing.T) {
	assert.Equal(t, MinAdvertiseInterval, ValidateAdvertiseInterval(5))
	assert.Equal(t, 2*time.Second, ValidateAdvertiseInterval(2000))
	assert.Equal(t, MinMonitorInterval, ValidateMonitorInterval(0))
	assert.Equal(t, 50*time.Millisecond, ValidateMonitorInterval(50))
}

func TestValidateTTL(t *testing.T) {
	assert.Equal(t, uint8(0), ValidateTTL(-3))
	assert.Equal(t, uint8(7), ValidateTTL(7))
	assert.Equal(t, uint8(255), ValidateTTL(1000))
}

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"contacts-backend/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)

	d, err := cfg.timeout()
	require.NoError(t, err)
	assert.Equal(t, client.DefaultTimeout, d)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contactsctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
server = "https://contacts.example.com/api/v1"
token = "abc1"
tenant = "tenant-7"
timeout = "5s"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://contacts.example.com/api/v1", cfg.Server)
	assert.Equal(t, "abc1", cfg.Token)
	assert.Equal(t, "tenant-7", cfg.Tenant)
	assert.Equal(t, defaultConfig().PageSize, cfg.PageSize)

	d, err := cfg.timeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contactsctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(`server = `), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigTimeoutValidation(t *testing.T) {
	for _, raw := range []string{"soon", "-1s", "0s"} {
		_, err := Config{Timeout: raw}.timeout()
		assert.Error(t, err, raw)
	}
}

func TestConfigEventsURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "derived from http server",
			cfg:  Config{Server: "http://localhost:8080/api/v1"},
			want: "ws://localhost:8080/api/ws/v1/events",
		},
		{
			name: "derived from https server",
			cfg:  Config{Server: "https://contacts.example.com/api/v1?x=1"},
			want: "wss://contacts.example.com/api/ws/v1/events",
		},
		{
			name: "explicit",
			cfg:  Config{Server: "http://localhost:8080/api/v1", EventsURL: "ws://localhost:8083/api/ws/v1/events"},
			want: "ws://localhost:8083/api/ws/v1/events",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.eventsURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

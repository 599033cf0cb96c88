package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Config{}
	cfg.Presence.AppID = 123
	cfg.SetDefaults()
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing app id",
			mutate:  func(c *Config) { c.Presence.AppID = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.Presence.Timeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "missing listener",
			mutate:  func(c *Config) { c.Listener.Addr = "" },
			wantErr: true,
		},
		{
			name:    "unknown monitoring mode",
			mutate:  func(c *Config) { c.Monitoring.Mode = "statsd" },
			wantErr: true,
		},
		{
			name:    "push mode without url",
			mutate:  func(c *Config) { c.Monitoring.Mode = MonitoringPush },
			wantErr: true,
		},
		{
			name: "push mode with url",
			mutate: func(c *Config) {
				c.Monitoring.Mode = MonitoringPush
				c.Monitoring.PushURL = "http://vm:8428"
			},
			wantErr: false,
		},
		{
			name:    "valid reconnect schedule",
			mutate:  func(c *Config) { c.Presence.ReconnectSchedule = "@every 30s" },
			wantErr: false,
		},
		{
			name:    "bad reconnect schedule",
			mutate:  func(c *Config) { c.Presence.ReconnectSchedule = "every now and then" },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			mutate:  func(c *Config) { c.Watch.Debounce = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	assert.Zero(t, cfg.Presence.AppID)
	assert.Equal(t, defaultTitle, cfg.Presence.Title)
	assert.Equal(t, defaultSubtitle, cfg.Presence.Subtitle)
	assert.Equal(t, defaultIcon, cfg.Presence.Icon)
	assert.Equal(t, defaultTimeout, cfg.Presence.Timeout)
	assert.Equal(t, defaultListenAddr, cfg.Listener.Addr)
	assert.Equal(t, MonitoringNone, cfg.Monitoring.Mode)
	assert.Equal(t, defaultWatchDebounce, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.False(t, cfg.Presence.ConnectOnStart)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
presence:
  app_id: 123
  title: "In menus"
  subtitle: "Idle"
  icon: "logo"
  connect_on_start: true
  reconnect_schedule: "*/5 * * * *"
  timeout: 2s
listener:
  addr: ":9000"
monitoring:
  mode: scrape
watch:
  enabled: true
logging:
  level: debug
  format: console
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(123), cfg.Presence.AppID)
	assert.Equal(t, "In menus", cfg.Presence.Title)
	assert.Equal(t, "Idle", cfg.Presence.Subtitle)
	assert.Equal(t, "logo", cfg.Presence.Icon)
	assert.True(t, cfg.Presence.ConnectOnStart)
	assert.Equal(t, "*/5 * * * *", cfg.Presence.ReconnectSchedule)
	assert.Equal(t, 2*time.Second, cfg.Presence.Timeout)
	assert.Equal(t, ":9000", cfg.Listener.Addr)
	assert.Equal(t, MonitoringScrape, cfg.Monitoring.Mode)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, defaultWatchDebounce, cfg.Watch.Debounce)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	actor := cfg.PresenceActor()
	assert.Equal(t, uint64(123), actor.AppID)
	assert.Equal(t, "In menus", actor.Title)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
presence:
  app_id: 123
  title: "from file"
`)
	t.Setenv("PRESENCED_PRESENCE_APP_ID", "456")
	t.Setenv("PRESENCED_PRESENCE_TITLE", "from env")
	t.Setenv("PRESENCED_LISTENER_ADDR", "127.0.0.1:9999")
	t.Setenv("PRESENCED_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(456), cfg.Presence.AppID)
	assert.Equal(t, "from env", cfg.Presence.Title)
	assert.Equal(t, defaultSubtitle, cfg.Presence.Subtitle)
	assert.Equal(t, "127.0.0.1:9999", cfg.Listener.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_BadEnv(t *testing.T) {
	path := writeConfig(t, "presence:\n  app_id: 1\n")
	t.Setenv("PRESENCED_PRESENCE_APP_ID", "not-a-number")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "presence: [unclosed"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "presence:\n  app_id: 1\nmonitoring:\n  mode: push\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push_url")
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_id is required")
}

func TestLoadConfig_RequiresAppID(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "presence:\n  title: \"no app\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_id is required")

	cfg, err := LoadConfig(writeConfig(t, "presence:\n  app_id: 7\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.Presence.AppID)
	assert.Equal(t, defaultTitle, cfg.Presence.Title)
}

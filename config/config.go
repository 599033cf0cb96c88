package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/nomis52/presenced/presence"
)

const (
	// Default presence settings
	defaultTitle    = "Researching the world"
	defaultSubtitle = "of Teyvat"
	defaultIcon     = "launcher"
	defaultTimeout  = 5 * time.Second

	// Default listener settings
	defaultListenAddr = "127.0.0.1:8765"

	// Default monitoring settings
	defaultMetricsPrefix = "presenced"
	defaultJobName       = "presenced"

	// Default watch settings
	defaultWatchDebounce = 500 * time.Millisecond

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"

	// EnvPrefix prefixes every environment override, e.g. PRESENCED_PRESENCE_APP_ID.
	EnvPrefix = "PRESENCED_"
)

// Monitoring modes.
const (
	MonitoringNone   = "none"
	MonitoringScrape = "scrape"
	MonitoringPush   = "push"
)

// Config represents the complete daemon configuration
type Config struct {
	Presence   PresenceConfig   `yaml:"presence" envPrefix:"PRESENCE_"`
	Listener   ListenerConfig   `yaml:"listener" envPrefix:"LISTENER_"`
	Monitoring MonitoringConfig `yaml:"monitoring" envPrefix:"MONITORING_"`
	Watch      WatchConfig      `yaml:"watch" envPrefix:"WATCH_"`
	Logging    LoggingConfig    `yaml:"logging" envPrefix:"LOGGING_"`
}

// PresenceConfig holds the presence application and the activity shown at startup
type PresenceConfig struct {
	// AppID is the Discord application id
	AppID    uint64 `yaml:"app_id" env:"APP_ID"`
	Title    string `yaml:"title" env:"TITLE"`
	Subtitle string `yaml:"subtitle" env:"SUBTITLE"`
	Icon     string `yaml:"icon" env:"ICON"`

	// ConnectOnStart connects as soon as the daemon starts
	ConnectOnStart bool `yaml:"connect_on_start" env:"CONNECT_ON_START"`

	// ReconnectSchedule is a 5 field cron spec. While a connection is wanted
	// but not established, a Connect is re-issued on this schedule. Empty
	// disables reconnects.
	ReconnectSchedule string `yaml:"reconnect_schedule" env:"RECONNECT_SCHEDULE"`

	// Timeout bounds each exchange with the presence service
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ListenerConfig holds HTTP control API settings
type ListenerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// MonitoringConfig holds metrics settings
type MonitoringConfig struct {
	// Mode is one of none, scrape or push
	Mode          string `yaml:"mode" env:"MODE"`
	PushURL       string `yaml:"push_url" env:"PUSH_URL"`
	MetricsPrefix string `yaml:"metrics_prefix" env:"METRICS_PREFIX"`
	JobName       string `yaml:"jobname" env:"JOBNAME"`
}

// WatchConfig controls reloading when the config file changes
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Debounce time.Duration `yaml:"debounce" env:"DEBOUNCE"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level" env:"LEVEL"`
	Format    string `yaml:"format" env:"FORMAT"`
	Output    string `yaml:"output" env:"OUTPUT"`
	AddSource bool   `yaml:"add_source" env:"ADD_SOURCE"`
}

// PresenceActor returns the settings the presence actor is created from
func (c *Config) PresenceActor() presence.Config {
	return presence.Config{
		AppID:    c.Presence.AppID,
		Title:    c.Presence.Title,
		Subtitle: c.Presence.Subtitle,
		Icon:     c.Presence.Icon,
	}
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.Presence.AppID == 0 {
		return errors.New("presence app_id is required")
	}
	if c.Presence.Timeout <= 0 {
		return errors.New("presence timeout must be positive")
	}
	if c.Presence.ReconnectSchedule != "" {
		if _, err := cron.ParseStandard(c.Presence.ReconnectSchedule); err != nil {
			return fmt.Errorf("presence reconnect_schedule %q: %w", c.Presence.ReconnectSchedule, err)
		}
	}
	if c.Listener.Addr == "" {
		return errors.New("listener addr is required")
	}
	modes := []string{MonitoringNone, MonitoringScrape, MonitoringPush}
	if !slices.Contains(modes, c.Monitoring.Mode) {
		return fmt.Errorf("monitoring mode %q must be one of none, scrape, push", c.Monitoring.Mode)
	}
	if c.Monitoring.Mode == MonitoringPush && c.Monitoring.PushURL == "" {
		return errors.New("monitoring push_url is required in push mode")
	}
	if c.Watch.Debounce < 0 {
		return errors.New("watch debounce must not be negative")
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Presence.Title == "" {
		c.Presence.Title = defaultTitle
	}
	if c.Presence.Subtitle == "" {
		c.Presence.Subtitle = defaultSubtitle
	}
	if c.Presence.Icon == "" {
		c.Presence.Icon = defaultIcon
	}
	if c.Presence.Timeout == 0 {
		c.Presence.Timeout = defaultTimeout
	}
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.Monitoring.Mode == "" {
		c.Monitoring.Mode = MonitoringNone
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = defaultWatchDebounce
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// LoadConfig reads the YAML config file at the given path, applies environment
// overrides and defaults, and validates the result
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PRESENCED_* environment variables. Unset
// variables leave the current value alone.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("applying environment overrides: %w", err)
	}
	return nil
}

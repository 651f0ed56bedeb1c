// Package config loads the ldrmon YAML configuration.
package config

import (
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Feed            FeedConfig        `yaml:"feed"`
	API             APIConfig         `yaml:"api"`
	Poll            PollConfig        `yaml:"poll"`
	Archive         ArchiveConfig     `yaml:"archive"`
	Log             LogConfig         `yaml:"log"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// FeedConfig contains WebSocket feed connection settings
type FeedConfig struct {
	URL            string   `yaml:"url"`
	ConnectTimeout Duration `yaml:"connect_timeout"` // Bounded wait for one connection attempt (default: 10s)
	PingInterval   Duration `yaml:"ping_interval"`   // Liveness probe interval (default: 30s)

	// Reconnect settings
	ReconnectBase Duration `yaml:"reconnect_base"` // First reconnect delay (default: 3s)
	ReconnectMax  Duration `yaml:"reconnect_max"`  // Reconnect delay cap (default: 30s)
	ReconnectGrow float64  `yaml:"reconnect_grow"` // Backoff multiplier (default: 1.5)
	MaxReconnects int      `yaml:"max_reconnects"` // Automatic attempts before giving up (default: 10)
	SettleDelay   Duration `yaml:"settle_delay"`   // Close-to-redial wait in forced reconnects (default: 1s)
}

// APIConfig contains REST polling client settings
type APIConfig struct {
	BaseURL  string   `yaml:"base_url"`
	Timeout  Duration `yaml:"timeout"`   // Bounded wait per request (default: 5s)
	CacheTTL Duration `yaml:"cache_ttl"` // Cached GET validity window (default: 5m)
}

// PollConfig contains periodic snapshot settings
type PollConfig struct {
	Interval     Duration `yaml:"interval"`      // Snapshot interval, 0 = disabled
	HistoryLimit int      `yaml:"history_limit"` // Rows per history fetch (default: 50)
}

// ArchiveConfig contains local reading archive settings
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxRecords int    `yaml:"max_records"` // Rolling window size (default: 1000)
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// GetShutdownTimeout returns the shutdown timeout with default
func (c *Config) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == 0 {
		return 5 * time.Second
	}
	return c.ShutdownTimeout.Duration()
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = "ws://localhost:8765"
	}
	if c.Feed.ConnectTimeout == 0 {
		c.Feed.ConnectTimeout = Duration(10 * time.Second)
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = Duration(30 * time.Second)
	}
	if c.Feed.ReconnectBase == 0 {
		c.Feed.ReconnectBase = Duration(3 * time.Second)
	}
	if c.Feed.ReconnectMax == 0 {
		c.Feed.ReconnectMax = Duration(30 * time.Second)
	}
	if c.Feed.ReconnectGrow == 0 {
		c.Feed.ReconnectGrow = 1.5
	}
	if c.Feed.MaxReconnects == 0 {
		c.Feed.MaxReconnects = 10
	}
	if c.Feed.SettleDelay == 0 {
		c.Feed.SettleDelay = Duration(1 * time.Second)
	}

	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8080"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(5 * time.Second)
	}
	if c.API.CacheTTL == 0 {
		c.API.CacheTTL = Duration(5 * time.Minute)
	}

	// Poll defaults - polling is the redundancy path, on by default
	if c.Poll.Interval == 0 {
		c.Poll.Interval = Duration(30 * time.Second)
	}
	if c.Poll.HistoryLimit == 0 {
		c.Poll.HistoryLimit = 50
	}

	// Archive defaults
	if c.Archive.Path == "" {
		c.Archive.Path = "./ldrmon.sqlite"
	}
	if c.Archive.MaxRecords == 0 {
		c.Archive.MaxRecords = 1000
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// Healthcheck defaults
	if c.Healthcheck.Port == 0 {
		c.Healthcheck.Port = 9090
	}
	if c.Healthcheck.Host == "" {
		c.Healthcheck.Host = "0.0.0.0"
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

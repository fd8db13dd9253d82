package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition on recorded assessments.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "risk_score >= 40", "systolic_bp > 180",
	// "oxygen_saturation < 92", "risk_level == high".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for the same patient for this duration.
	// Alerts for assessments without a patient stay firing this long.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultStorageBackend    = "memory"
	DefaultBroadcastInterval = 5 * time.Second
	DefaultLogLevel          = "info"
	DefaultRecentAssessments = 5
)

// Config holds the configuration parsed from the `server:` section of
// config.yaml, with ARTERYCHECK_* environment overrides applied on top.
type Config struct {
	Server ServerConfig `yaml:"server" envPrefix:"ARTERYCHECK_"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and /metrics listen on.
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`

	// UIDir optionally serves a pre-built dashboard bundle from disk.
	UIDir string `yaml:"ui_dir" env:"UI_DIR"`

	// Storage selects where records are kept.
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`

	// Broadcast controls the dashboard WebSocket push.
	Broadcast BroadcastConfig `yaml:"broadcast" envPrefix:"BROADCAST_"`

	// Log controls the slog handler.
	Log LogConfig `yaml:"log" envPrefix:"LOG_"`

	// RecentAssessments is how many assessments the patient detail page shows.
	RecentAssessments int `yaml:"recent_assessments" env:"RECENT_ASSESSMENTS"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	// Backend is one of: memory | sqlite.
	Backend string `yaml:"backend" env:"BACKEND"`

	// Path is the SQLite database file. Required when Backend == "sqlite".
	Path string `yaml:"path" env:"PATH"`
}

// BroadcastConfig controls how often the dashboard summary is pushed.
type BroadcastConfig struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

// LogConfig controls log verbosity and encoding.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level" env:"LEVEL"`

	// Format is one of: json | text.
	Format string `yaml:"format" env:"FORMAT"`
}

// SlogLevel converts Level to a slog.Level. Unknown values map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path, applies environment
// overrides and validates the result. An empty path skips the file and uses
// defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("server config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("server config: parse yaml: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("server config: parse env: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			Storage:           StorageConfig{Backend: DefaultStorageBackend},
			Broadcast:         BroadcastConfig{Interval: DefaultBroadcastInterval},
			Log:               LogConfig{Level: DefaultLogLevel, Format: "json"},
			RecentAssessments: DefaultRecentAssessments,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Storage.Backend {
	case "memory":
	case "sqlite":
		if s.Storage.Path == "" {
			return fmt.Errorf("server.storage.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("server.storage.backend %q unknown: want memory|sqlite", s.Storage.Backend)
	}
	if s.Broadcast.Interval <= 0 {
		return fmt.Errorf("server.broadcast.interval must be positive")
	}
	switch s.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("server.log.format %q unknown: want json|text", s.Log.Format)
	}
	if s.RecentAssessments < 0 {
		return fmt.Errorf("server.recent_assessments must not be negative")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if len(strings.Fields(r.Condition)) != 3 {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition %q must be \"field op value\"", i, r.Name, r.Condition)
		}
		switch r.Severity {
		case "", "critical", "warning", "info":
		default:
			return fmt.Errorf("server.alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	return nil
}

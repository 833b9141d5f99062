// Package config provides configuration management for the reconciliation engine.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Default thresholds and SLAs, used when a config file omits them.
const (
	defaultAutoMatchThreshold    = 0.95
	defaultManualReviewThreshold = 0.75
	defaultPriceTolerancePct     = 0.01
	defaultQuantityTolerance     = 0.0

	defaultSLACriticalMinutes = 30
	defaultSLAHighMinutes     = 120
	defaultSLALowMinutes      = 480

	defaultSweepInterval = "15m"
	defaultBrokerTimeout = "30s"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Matching    MatchingConfig    `yaml:"matching"`
	SLA         SLAConfig         `yaml:"sla"`
	Storage     StorageConfig     `yaml:"storage"`
	API         APIConfig         `yaml:"api"`
	Ingestion   IngestionConfig   `yaml:"ingestion"`
	Model       ModelConfig       `yaml:"model"`
	Notify      NotifyConfig      `yaml:"notify"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // paper | live
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// MatchingConfig defines fuzzy-matcher thresholds and tolerances.
type MatchingConfig struct {
	AutoMatchThreshold    float64 `yaml:"auto_match_threshold"`
	ManualReviewThreshold float64 `yaml:"manual_review_threshold"`
	PriceTolerancePct     float64 `yaml:"price_tolerance_pct"`
	QuantityTolerance     float64 `yaml:"quantity_tolerance"`
}

// SLAConfig defines the per-severity SLA windows, in minutes, used to
// compute a break's sla_deadline, and the sweep cadence as a duration
// string (e.g. "15m").
type SLAConfig struct {
	CriticalMinutes int    `yaml:"critical_minutes"`
	HighMinutes     int    `yaml:"high_minutes"`
	LowMinutes      int    `yaml:"low_minutes"` // shared by LOW and MEDIUM severities
	SweepInterval   string `yaml:"sweep_interval"`
}

// StorageConfig defines storage settings.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// APIConfig defines the HTTP surface settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Prefix  string `yaml:"prefix"`
}

// IngestionConfig defines connector settings for the two source systems.
type IngestionConfig struct {
	BrokerURL     string `yaml:"broker_url"`
	BrokerTimeout string `yaml:"broker_timeout"` // duration string, e.g. "30s"
}

// ModelConfig defines the break-prediction model artifact location.
type ModelConfig struct {
	ArtifactPath string `yaml:"artifact_path"`
}

// NotifyConfig defines where routing notifications are delivered. An empty
// WebhookURL falls back to logging-only notification.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a caller-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", configPath, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", configPath, err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Normalize sets default values for fields left unset in the config file.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Environment.Mode) == "" {
		c.Environment.Mode = "paper"
	}
	if strings.TrimSpace(c.Environment.LogLevel) == "" {
		c.Environment.LogLevel = "info"
	}
	if c.Matching.AutoMatchThreshold == 0 {
		c.Matching.AutoMatchThreshold = defaultAutoMatchThreshold
	}
	if c.Matching.ManualReviewThreshold == 0 {
		c.Matching.ManualReviewThreshold = defaultManualReviewThreshold
	}
	if c.Matching.PriceTolerancePct == 0 {
		c.Matching.PriceTolerancePct = defaultPriceTolerancePct
	}
	if c.Matching.QuantityTolerance == 0 {
		c.Matching.QuantityTolerance = defaultQuantityTolerance
	}
	if c.SLA.CriticalMinutes == 0 {
		c.SLA.CriticalMinutes = defaultSLACriticalMinutes
	}
	if c.SLA.HighMinutes == 0 {
		c.SLA.HighMinutes = defaultSLAHighMinutes
	}
	if c.SLA.LowMinutes == 0 {
		c.SLA.LowMinutes = defaultSLALowMinutes
	}
	if strings.TrimSpace(c.SLA.SweepInterval) == "" {
		c.SLA.SweepInterval = defaultSweepInterval
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if strings.TrimSpace(c.API.Prefix) == "" {
		c.API.Prefix = "/api/v1"
	}
	if strings.TrimSpace(c.Ingestion.BrokerTimeout) == "" {
		c.Ingestion.BrokerTimeout = defaultBrokerTimeout
	}
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.Environment.Mode != "paper" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'paper' or 'live'")
	}
	switch strings.ToLower(c.Environment.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of: debug, info, warn, error")
	}

	if c.Matching.AutoMatchThreshold <= 0 || c.Matching.AutoMatchThreshold > 1 {
		return fmt.Errorf("matching.auto_match_threshold must be in (0,1]")
	}
	if c.Matching.ManualReviewThreshold <= 0 || c.Matching.ManualReviewThreshold > 1 {
		return fmt.Errorf("matching.manual_review_threshold must be in (0,1]")
	}
	if c.Matching.ManualReviewThreshold >= c.Matching.AutoMatchThreshold {
		return fmt.Errorf("matching.manual_review_threshold (%.2f) must be < matching.auto_match_threshold (%.2f)",
			c.Matching.ManualReviewThreshold, c.Matching.AutoMatchThreshold)
	}
	if c.Matching.PriceTolerancePct < 0 {
		return fmt.Errorf("matching.price_tolerance_pct must be >= 0")
	}
	if c.Matching.QuantityTolerance < 0 {
		return fmt.Errorf("matching.quantity_tolerance must be >= 0")
	}

	if c.SLA.CriticalMinutes <= 0 || c.SLA.HighMinutes <= 0 || c.SLA.LowMinutes <= 0 {
		return fmt.Errorf("sla minute windows must all be > 0")
	}
	if d, err := time.ParseDuration(strings.TrimSpace(c.SLA.SweepInterval)); err != nil {
		return fmt.Errorf("sla.sweep_interval invalid: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("sla.sweep_interval must be > 0")
	}
	if d, err := time.ParseDuration(strings.TrimSpace(c.Ingestion.BrokerTimeout)); err != nil {
		return fmt.Errorf("ingestion.broker_timeout invalid: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("ingestion.broker_timeout must be > 0")
	}

	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		return fmt.Errorf("api.port must be between 1 and 65535")
	}

	return nil
}

// IsPaperTrading returns true if the engine is configured in paper mode.
// No other component consults it: auto-remediation and every other action
// behave the same in paper and live mode.
func (c *Config) IsPaperTrading() bool {
	return c.Environment.Mode == "paper"
}

// GetSweepInterval parses the configured SLA sweep cadence, falling back to
// the default when unset or unparsable (Validate rejects bad values at load
// time; the fallback covers hand-built configs in tests).
func (c *Config) GetSweepInterval() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.SLA.SweepInterval))
	if err != nil || d <= 0 {
		fallback, _ := time.ParseDuration(defaultSweepInterval)
		return fallback
	}
	return d
}

// GetBrokerTimeout parses the configured per-request ingestion deadline,
// falling back to the default when unset or unparsable.
func (c *Config) GetBrokerTimeout() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.Ingestion.BrokerTimeout))
	if err != nil || d <= 0 {
		fallback, _ := time.ParseDuration(defaultBrokerTimeout)
		return fallback
	}
	return d
}

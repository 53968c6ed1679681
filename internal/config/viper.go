// Package config provides Viper-based hierarchical configuration management
// plus .env loading for local development.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Addr                   string `mapstructure:"addr" yaml:"addr"`
		ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
		MaxUploadBytes         int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	} `mapstructure:"server" yaml:"server"`

	Import struct {
		SessionTTLHours int `mapstructure:"session_ttl_hours" yaml:"session_ttl_hours"`
	} `mapstructure:"import" yaml:"import"`

	Reconcile struct {
		MatchWindowDays     int     `mapstructure:"match_window_days" yaml:"match_window_days"`
		MatchEpsilon        float64 `mapstructure:"match_epsilon" yaml:"match_epsilon"`
		ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	} `mapstructure:"reconcile" yaml:"reconcile"`

	Forecast struct {
		CacheTTLMinutes    int     `mapstructure:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
		MinimumHistoryDays int     `mapstructure:"minimum_history_days" yaml:"minimum_history_days"`
		SeasonalityMinDays int     `mapstructure:"seasonality_min_days" yaml:"seasonality_min_days"`
		ScenarioPct        float64 `mapstructure:"scenario_pct" yaml:"scenario_pct"`
		RiskBuffer         float64 `mapstructure:"risk_buffer" yaml:"risk_buffer"`
		DefaultHistoryDays int     `mapstructure:"default_history_days" yaml:"default_history_days"`
		DefaultHorizonDays int     `mapstructure:"default_horizon_days" yaml:"default_horizon_days"`
		MaxHorizonDays     int     `mapstructure:"max_horizon_days" yaml:"max_horizon_days"`
	} `mapstructure:"forecast" yaml:"forecast"`

	Anomaly struct {
		TrailingWindowDays int `mapstructure:"trailing_window_days" yaml:"trailing_window_days"`
		MinSamples         int `mapstructure:"min_samples" yaml:"min_samples"`
		QueueSize          int `mapstructure:"queue_size" yaml:"queue_size"`
	} `mapstructure:"anomaly" yaml:"anomaly"`

	Seed struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"seed" yaml:"seed"`
}

// InitializeConfig initializes Viper configuration with hierarchical
// loading: defaults, then an optional config file, then QF_-prefixed
// environment variables.
func InitializeConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.quelyos-finance")
	v.AddConfigPath(".quelyos-finance")
	v.AddConfigPath(".")

	v.SetEnvPrefix("QF")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Continue with defaults and env vars; a broken file should
			// not take the service down.
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8085")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.max_upload_bytes", 16<<20)

	v.SetDefault("import.session_ttl_hours", 24)

	v.SetDefault("reconcile.match_window_days", 7)
	v.SetDefault("reconcile.match_epsilon", 0.01)
	v.SetDefault("reconcile.confidence_threshold", 0.6)

	v.SetDefault("forecast.cache_ttl_minutes", 5)
	v.SetDefault("forecast.minimum_history_days", 7)
	v.SetDefault("forecast.seasonality_min_days", 14)
	v.SetDefault("forecast.scenario_pct", 0.15)
	v.SetDefault("forecast.risk_buffer", 1000)
	v.SetDefault("forecast.default_history_days", 90)
	v.SetDefault("forecast.default_horizon_days", 30)
	v.SetDefault("forecast.max_horizon_days", 365)

	v.SetDefault("anomaly.trailing_window_days", 90)
	v.SetDefault("anomaly.min_samples", 3)
	v.SetDefault("anomaly.queue_size", 64)

	v.SetDefault("seed.file", "")
}

// validateConfig rejects configurations the engines cannot run with.
func validateConfig(c *Config) error {
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug|info|warn|error, got '%s'", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json', got '%s'", c.Log.Format)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Import.SessionTTLHours <= 0 {
		return fmt.Errorf("import.session_ttl_hours must be positive")
	}
	if c.Reconcile.MatchWindowDays <= 0 {
		return fmt.Errorf("reconcile.match_window_days must be positive")
	}
	if c.Reconcile.MatchEpsilon < 0 {
		return fmt.Errorf("reconcile.match_epsilon must not be negative")
	}
	if c.Reconcile.ConfidenceThreshold < 0 || c.Reconcile.ConfidenceThreshold > 1 {
		return fmt.Errorf("reconcile.confidence_threshold must be in [0,1]")
	}
	if c.Forecast.ScenarioPct <= 0 || c.Forecast.ScenarioPct >= 1 {
		return fmt.Errorf("forecast.scenario_pct must be in (0,1)")
	}
	if c.Forecast.MinimumHistoryDays <= 0 {
		return fmt.Errorf("forecast.minimum_history_days must be positive")
	}
	if c.Forecast.DefaultHorizonDays <= 0 || c.Forecast.DefaultHorizonDays > c.Forecast.MaxHorizonDays {
		return fmt.Errorf("forecast.default_horizon_days must be in (0, max_horizon_days]")
	}
	if c.Anomaly.MinSamples < 2 {
		return fmt.Errorf("anomaly.min_samples must be at least 2")
	}
	return nil
}

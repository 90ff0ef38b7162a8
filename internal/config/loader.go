// Package config provides configuration management for the Grid Oracle application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("GRID_ORACLE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing config file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("GRID_ORACLE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "grid-oracle")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("model.learning_rate", 0.03)
	v.SetDefault("model.epochs", 200)
	v.SetDefault("model.blend_weight_rank", 0.6)
	v.SetDefault("model.blend_weight_reg", 0.4)
	v.SetDefault("model.min_races", 5)
	v.SetDefault("rating.driver_k_factor", 32.0)
	v.SetDefault("rating.team_k_factor", 32.0)
	v.SetDefault("simulation.trials", 5000)
	v.SetDefault("simulation.base_seed", 1)
	v.SetDefault("simulation.incident_probability", 0.05)
	v.SetDefault("simulation.incident_max_drivers", 6)
	v.SetDefault("simulation.wet_noise_multiplier", 1.5)
	v.SetDefault("simulation.wet_dnf_multiplier", 1.5)
	v.SetDefault("simulation.min_residual_samples", 5)
	v.SetDefault("simulation.dnf_cap", 0.35)
	v.SetDefault("prediction.cache_ttl_seconds", 300)
	v.SetDefault("prediction.cache_cleanup_seconds", 600)
	v.SetDefault("prediction.requests_per_second", 10.0)
	v.SetDefault("prediction.request_burst", 20)
	v.SetDefault("prediction.default_weather", "dry")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.retraining_schedule", "0 3 * * 1")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

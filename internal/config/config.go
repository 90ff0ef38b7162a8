// Package config provides configuration management for the Grid Oracle application.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Model      ModelConfig      `mapstructure:"model" validate:"required"`
	Rating     RatingConfig     `mapstructure:"rating" validate:"required"`
	Simulation SimulationConfig `mapstructure:"simulation" validate:"required"`
	Prediction PredictionConfig `mapstructure:"prediction" validate:"required"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ModelConfig represents ensemble training configuration
type ModelConfig struct {
	LearningRate    float64 `mapstructure:"learning_rate" validate:"required,gt=0,lte=1"`
	Epochs          int     `mapstructure:"epochs" validate:"required,gt=0,lte=10000"`
	BlendWeightRank float64 `mapstructure:"blend_weight_rank" validate:"gte=0,lte=1"`
	BlendWeightReg  float64 `mapstructure:"blend_weight_reg" validate:"gte=0,lte=1"`
	MinRaces        int     `mapstructure:"min_races" validate:"required,gte=2"`
}

// RatingConfig represents rating tracker configuration
type RatingConfig struct {
	DriverKFactor float64 `mapstructure:"driver_k_factor" validate:"required,gt=0"`
	TeamKFactor   float64 `mapstructure:"team_k_factor" validate:"required,gt=0"`
}

// SimulationConfig represents Monte Carlo simulation configuration
type SimulationConfig struct {
	Trials              int     `mapstructure:"trials" validate:"required,gt=0,lte=1000000"`
	BaseSeed            int64   `mapstructure:"base_seed"`
	Workers             int     `mapstructure:"workers" validate:"gte=0"`
	IncidentProbability float64 `mapstructure:"incident_probability" validate:"gte=0,lte=1"`
	IncidentMaxDrivers  int     `mapstructure:"incident_max_drivers" validate:"required,gte=2"`
	WetNoiseMultiplier  float64 `mapstructure:"wet_noise_multiplier" validate:"required,gte=1"`
	WetDNFMultiplier    float64 `mapstructure:"wet_dnf_multiplier" validate:"required,gte=1"`
	MinResidualSamples  int     `mapstructure:"min_residual_samples" validate:"required,gte=1"`
	DNFFloor            float64 `mapstructure:"dnf_floor" validate:"gte=0,lte=1"`
	DNFCap              float64 `mapstructure:"dnf_cap" validate:"gt=0,lte=1"`
}

// PredictionConfig represents prediction serving configuration
type PredictionConfig struct {
	CacheTTLSeconds      int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheCleanupSeconds  int     `mapstructure:"cache_cleanup_seconds" validate:"required,gt=0"`
	RequestsPerSecond    float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`
	RequestBurst         int     `mapstructure:"request_burst" validate:"required,gt=0"`
	DefaultWeather       string  `mapstructure:"default_weather" validate:"required,weather"`
}

// SchedulerConfig represents the retraining scheduler configuration
type SchedulerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	RetrainingSchedule string `mapstructure:"retraining_schedule" validate:"required"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

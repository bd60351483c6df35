// Package config loads the application configuration in three layers:
// struct-tag defaults, then environment variables (prefix PRICER_), then
// an optional YAML file on top. Every configurable field participates in
// all three layers; a key present in the file always wins.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"pricecli/internal/pricing"
)

// envPrefix namespaces all environment overrides
const envPrefix = "PRICER"

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pricing pricing.Config `yaml:"pricing" envconfig:"PRICING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig throttles the run-trigger endpoint
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"10" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"5" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data" validate:"required"`
	OutDir  string `yaml:"out_dir" envconfig:"OUT_DIR" default:"outputs" validate:"required"`
}

// Load loads configuration in three layers: struct-tag defaults, then
// environment variables, then the optional YAML file on top.
func Load() (*Config, error) {
	var cfg Config

	// Defaults and environment first
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		overrides, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		overrides.apply(&cfg)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Pricing.ElasticityMinSample > c.Pricing.ForecastMinSample {
		return fmt.Errorf("elasticity_min_sample (%d) must not exceed forecast_min_sample (%d)",
			c.Pricing.ElasticityMinSample, c.Pricing.ForecastMinSample)
	}
	return nil
}

// configFilePath returns the YAML config location, overridable via
// PRICER_CONFIG_FILE
func configFilePath() string {
	if path := os.Getenv(envPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

// duration accepts the same human-readable form env overrides use ("15s");
// yaml.v2 cannot decode that into time.Duration on its own
type duration time.Duration

func (d *duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = duration(v)
	return nil
}

// fileOverrides mirrors Config with pointer fields, so a key absent from
// the YAML file is distinguishable from one explicitly set to a zero value
// (future_promo: 0, rate_limit.enabled: false).
type fileOverrides struct {
	Server struct {
		Port            *int      `yaml:"port"`
		ReadTimeout     *duration `yaml:"read_timeout"`
		WriteTimeout    *duration `yaml:"write_timeout"`
		IdleTimeout     *duration `yaml:"idle_timeout"`
		ShutdownTimeout *duration `yaml:"shutdown_timeout"`
		RateLimit       struct {
			Enabled *bool    `yaml:"enabled"`
			RPS     *float64 `yaml:"rps"`
			Burst   *int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logging struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"logging"`
	Paths struct {
		DataDir *string `yaml:"data_dir"`
		OutDir  *string `yaml:"out_dir"`
	} `yaml:"paths"`
	Pricing struct {
		HorizonDays         *int     `yaml:"horizon_days"`
		MinMargin           *float64 `yaml:"min_margin"`
		CompDelta           *float64 `yaml:"comp_delta"`
		ElasticityMinSample *int     `yaml:"elasticity_min_sample"`
		ForecastMinSample   *int     `yaml:"forecast_min_sample"`
		GridPoints          *int     `yaml:"grid_points"`
		ExogWindow          *int     `yaml:"exog_window"`
		PriceCeilingRatio   *float64 `yaml:"price_ceiling_ratio"`
		FuturePromo         *float64 `yaml:"future_promo"`
		MaxConcurrency      *int     `yaml:"max_concurrency"`
	} `yaml:"pricing"`
}

func loadFromFile(path string) (*fileOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &overrides, nil
}

// apply overlays every key present in the file on the env-derived
// configuration. The file is the topmost layer: defaults, then
// environment, then file.
func (o *fileOverrides) apply(cfg *Config) {
	setIf(&cfg.Server.Port, o.Server.Port)
	setDuration(&cfg.Server.ReadTimeout, o.Server.ReadTimeout)
	setDuration(&cfg.Server.WriteTimeout, o.Server.WriteTimeout)
	setDuration(&cfg.Server.IdleTimeout, o.Server.IdleTimeout)
	setDuration(&cfg.Server.ShutdownTimeout, o.Server.ShutdownTimeout)
	setIf(&cfg.Server.RateLimit.Enabled, o.Server.RateLimit.Enabled)
	setIf(&cfg.Server.RateLimit.RPS, o.Server.RateLimit.RPS)
	setIf(&cfg.Server.RateLimit.Burst, o.Server.RateLimit.Burst)

	setIf(&cfg.Logging.Level, o.Logging.Level)
	setIf(&cfg.Logging.Format, o.Logging.Format)

	setIf(&cfg.Paths.DataDir, o.Paths.DataDir)
	setIf(&cfg.Paths.OutDir, o.Paths.OutDir)

	setIf(&cfg.Pricing.HorizonDays, o.Pricing.HorizonDays)
	setIf(&cfg.Pricing.MinMargin, o.Pricing.MinMargin)
	setIf(&cfg.Pricing.CompDelta, o.Pricing.CompDelta)
	setIf(&cfg.Pricing.ElasticityMinSample, o.Pricing.ElasticityMinSample)
	setIf(&cfg.Pricing.ForecastMinSample, o.Pricing.ForecastMinSample)
	setIf(&cfg.Pricing.GridPoints, o.Pricing.GridPoints)
	setIf(&cfg.Pricing.ExogWindow, o.Pricing.ExogWindow)
	setIf(&cfg.Pricing.PriceCeilingRatio, o.Pricing.PriceCeilingRatio)
	setIf(&cfg.Pricing.FuturePromo, o.Pricing.FuturePromo)
	setIf(&cfg.Pricing.MaxConcurrency, o.Pricing.MaxConcurrency)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *duration) {
	if src != nil {
		*dst = time.Duration(*src)
	}
}

// resolvePaths makes the data and output directories absolute relative to
// the working directory
func (c *Config) resolvePaths() error {
	for _, dir := range []*string{&c.Paths.DataDir, &c.Paths.OutDir} {
		if filepath.IsAbs(*dir) {
			continue
		}
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *dir, err)
		}
		*dir = abs
	}
	return nil
}

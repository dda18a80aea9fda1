package config

import (
	"fmt"
	"time"

	"github.com/buyerscan/buyerscan/internal/infra/explorer"
	filestore "github.com/buyerscan/buyerscan/internal/infra/storage/file"
	"github.com/buyerscan/buyerscan/internal/infra/storage/postgres"
	redisstore "github.com/buyerscan/buyerscan/internal/infra/storage/redis"
	"github.com/buyerscan/buyerscan/internal/scanning/engine"
	"github.com/buyerscan/buyerscan/internal/scanning/fetch"
	"github.com/buyerscan/buyerscan/internal/scanning/ratelimit"
)

// Duration is a yaml-friendly time.Duration accepting "200ms" style strings
// as well as raw nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := unmarshal(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Explorer  ExplorerConfig  `yaml:"explorer"`
	Scan      ScanConfig      `yaml:"scan"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ExplorerConfig holds explorer API settings.
type ExplorerConfig struct {
	BaseURL  string   `yaml:"base_url"`
	APIKey   string   `yaml:"api_key"`
	PageSize int      `yaml:"page_size"`
	Timeout  Duration `yaml:"timeout"`
}

// ClientConfig converts to the explorer client's config.
func (c ExplorerConfig) ClientConfig() explorer.Config {
	return explorer.Config{
		BaseURL:  c.BaseURL,
		APIKey:   c.APIKey,
		PageSize: c.PageSize,
		Timeout:  c.Timeout.Std(),
	}
}

// ScanConfig holds settings for the collection engine.
type ScanConfig struct {
	Contract        string   `yaml:"contract"`
	BatchSize       int      `yaml:"batch_size"`
	InterBatchDelay Duration `yaml:"inter_batch_delay"`
}

// EngineConfig converts scan settings into the engine's config.
func (c ScanConfig) EngineConfig() engine.Config {
	return engine.Config{
		BatchSize:       c.BatchSize,
		InterBatchDelay: c.InterBatchDelay.Std(),
	}
}

// RateLimitConfig holds limiter pacing settings.
type RateLimitConfig struct {
	MinInterval  Duration `yaml:"min_interval"`
	BackoffFloor Duration `yaml:"backoff_floor"`
	BackoffMax   Duration `yaml:"backoff_max"`
	Multiplier   float64  `yaml:"multiplier"`
}

// LimiterConfig converts to the rate limiter's config.
func (c RateLimitConfig) LimiterConfig() ratelimit.Config {
	return ratelimit.Config{
		MinInterval:  c.MinInterval.Std(),
		BackoffFloor: c.BackoffFloor.Std(),
		BackoffMax:   c.BackoffMax.Std(),
		Multiplier:   c.Multiplier,
	}
}

// RetryConfig holds retry-on-rate-limit settings.
type RetryConfig struct {
	MaxAttempts int  `yaml:"max_attempts"`
	Strict      bool `yaml:"strict"`
}

// FetchConfig converts to the retry wrapper's config.
func (c RetryConfig) FetchConfig() fetch.Config {
	return fetch.Config{
		MaxAttempts: c.MaxAttempts,
		Strict:      c.Strict,
	}
}

// StorageConfig selects and configures the checkpoint backend.
type StorageConfig struct {
	// Backend is one of "file", "postgres", "redis", "memory".
	Backend  string            `yaml:"backend"`
	File     filestore.Config  `yaml:"file"`
	Database postgres.Config   `yaml:"database"`
	Redis    redisstore.Config `yaml:"redis"`
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/buyerscan/buyerscan/internal/infra/explorer"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Explorer.BaseURL == "" {
		cfg.Explorer.BaseURL = explorer.DefaultBaseURL
	}
	if cfg.Explorer.PageSize == 0 {
		cfg.Explorer.PageSize = 1000
	}
	if cfg.Explorer.Timeout == 0 {
		cfg.Explorer.Timeout = Duration(30 * time.Second)
	}
	if cfg.Scan.BatchSize == 0 {
		cfg.Scan.BatchSize = 2
	}
	if cfg.Scan.InterBatchDelay == 0 {
		cfg.Scan.InterBatchDelay = Duration(1 * time.Second)
	}
	if cfg.RateLimit.MinInterval == 0 {
		cfg.RateLimit.MinInterval = Duration(200 * time.Millisecond)
	}
	if cfg.RateLimit.BackoffFloor == 0 {
		cfg.RateLimit.BackoffFloor = Duration(1 * time.Second)
	}
	if cfg.RateLimit.BackoffMax == 0 {
		cfg.RateLimit.BackoffMax = Duration(60 * time.Second)
	}
	if cfg.RateLimit.Multiplier == 0 {
		cfg.RateLimit.Multiplier = 2.0
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.File.Path == "" {
		cfg.Storage.File.Path = "data/checkpoints.json"
	}
}

// Validate fails fast on settings that would only break mid-scan.
func (cfg *AppConfig) Validate() error {
	if cfg.Explorer.APIKey == "" {
		return fmt.Errorf("%w: set explorer.api_key or EXPLORER_API_KEY", explorer.ErrMissingAPIKey)
	}
	switch cfg.Storage.Backend {
	case "file", "postgres", "redis", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "postgres" && cfg.Storage.Database.URL == "" {
		return fmt.Errorf("storage backend is postgres but database.url is empty")
	}
	if cfg.Storage.Backend == "redis" && cfg.Storage.Redis.URL == "" {
		return fmt.Errorf("storage backend is redis but redis.url is empty")
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"market-gateway/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills in the reference configuration for anything the file
// leaves out. The values mirror the documented defaults.
func (c *Config) applyDefaults() {
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = 2
	}
	if c.MaxHistoricalFetch == 0 {
		c.MaxHistoricalFetch = 1000
	}
	if c.Cache.TickerTTLSeconds == 0 {
		c.Cache.TickerTTLSeconds = 5
	}
	if c.Cache.HistoricalTTLSeconds == 0 {
		c.Cache.HistoricalTTLSeconds = 60
	}
	if c.Cache.TickerSize == 0 {
		c.Cache.TickerSize = 2000
	}
	if c.Cache.HistoricalSize == 0 {
		c.Cache.HistoricalSize = 1000
	}
	if c.RateLimit.PerMinute == 0 {
		c.RateLimit.PerMinute = 60
	}
	if c.RateLimit.IdleTTLSeconds == 0 {
		c.RateLimit.IdleTTLSeconds = 600
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoffMs == 0 {
		c.Retry.InitialBackoffMs = 500
	}
	if c.Retry.MaxBackoffMs == 0 {
		c.Retry.MaxBackoffMs = 5000
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}

	// Validate gateway tunables
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}
	if c.Cache.TickerTTLSeconds <= 0 || c.Cache.HistoricalTTLSeconds <= 0 {
		return fmt.Errorf("cache TTLs must be greater than 0")
	}
	if c.Cache.TickerSize <= 0 || c.Cache.HistoricalSize <= 0 {
		return fmt.Errorf("cache sizes must be greater than 0")
	}
	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("rate limit per minute must be greater than 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry attempts must be greater than 0")
	}
	if c.Retry.InitialBackoffMs <= 0 || c.Retry.MaxBackoffMs < c.Retry.InitialBackoffMs {
		return fmt.Errorf("invalid retry backoff bounds: initial=%dms max=%dms",
			c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}

	// Validate Sources configuration
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one data source must be configured")
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d must have a name", i)
		}
		if src.Type == "" {
			return fmt.Errorf("source '%s' must have a type", src.Name)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

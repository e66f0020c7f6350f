package models

// MConfig Structure
type MConfig struct {
	Name     string   `yaml:"name"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	LogLevel string   `yaml:"log_level"`
	APIKeys  []string `yaml:"api_keys"`

	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxHistoricalFetch  int `yaml:"max_historical_fetch"`

	Cache     MCacheConfig     `yaml:"cache"`
	RateLimit MRateLimitConfig `yaml:"rate_limit"`
	Retry     MRetryConfig     `yaml:"retry"`
	Network   MNetworkConfig   `yaml:"network"`
	Storage   MStorageConfig   `yaml:"storage"`
	Sources   []MSourceConfig  `yaml:"sources"`
}

type MCacheConfig struct {
	TickerTTLSeconds     int `yaml:"ticker_ttl_seconds"`
	HistoricalTTLSeconds int `yaml:"historical_ttl_seconds"`
	TickerSize           int `yaml:"ticker_size"`
	HistoricalSize       int `yaml:"historical_size"`
}

type MRateLimitConfig struct {
	PerMinute      int `yaml:"per_minute"`
	IdleTTLSeconds int `yaml:"idle_ttl_seconds"`
}

type MRetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	UserAgent      string `yaml:"user_agent"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MSourceConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	BaseURL     string `yaml:"base_url"`     // Optional, overrides the provider default
	MarketHours string `yaml:"market_hours"` // Optional MIC code; empty means 24/7
	APIKey      string `yaml:"api_key"`      // Optional
}

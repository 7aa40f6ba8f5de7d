// Package config loads application configuration from a YAML file with
// environment variable overrides (CART_* prefix). Defaults are applied
// first, then the file, then the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	IGDB        IGDBConfig        `yaml:"igdb"`
	Search      SearchConfig      `yaml:"search"`
	Cache       CacheConfig       `yaml:"cache"`
	Sync        SyncConfig        `yaml:"sync"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Backup      BackupConfig      `yaml:"backup"`
	RateLimit   RateLimitConfig   `yaml:"ratelimit"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// IGDBConfig holds credentials and rate limits for the IGDB metadata API.
// Empty credentials disable the provider; searches then serve catalog
// results only.
type IGDBConfig struct {
	ClientID          string  `yaml:"client_id"`
	ClientSecret      string  `yaml:"client_secret"`
	BaseURL           string  `yaml:"base_url"`
	TokenURL          string  `yaml:"token_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxConcurrent     int     `yaml:"max_concurrent"`
	MaxRetries        int     `yaml:"max_retries"`
}

// SearchConfig holds search pipeline settings.
type SearchConfig struct {
	DefaultLimit      int    `yaml:"default_limit"`
	MaxLimit          int    `yaml:"max_limit"`
	MinCatalogResults int    `yaml:"min_catalog_results"`
	ProviderLimit     int    `yaml:"provider_limit"`
	MaxSisterLookups  int    `yaml:"max_sister_lookups"`
	FranchisePath     string `yaml:"franchise_path"`
	WeightsPath       string `yaml:"weights_path"`
}

// CacheConfig holds provider response cache settings.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
	TTLHours int `yaml:"ttl_hours"`
}

// SyncConfig holds background catalog refresh settings.
type SyncConfig struct {
	Enabled        bool `yaml:"enabled"`
	IntervalHours  int  `yaml:"interval_hours"`
	BatchSize      int  `yaml:"batch_size"`
	StaleAfterDays int  `yaml:"stale_after_days"`
}

// MaintenanceConfig holds database maintenance schedule settings.
type MaintenanceConfig struct {
	Enabled       bool `yaml:"enabled"`
	IntervalHours int  `yaml:"interval_hours"`
}

// BackupConfig holds catalog snapshot settings. An empty Path places
// snapshots in a backups directory beside the database file.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	IntervalHours int    `yaml:"interval_hours"`
	Retention     int    `yaml:"retention"`
	MaxAgeDays    int    `yaml:"max_age_days"`
}

// RateLimitConfig holds per-client throttling for the search endpoint.
type RateLimitConfig struct {
	SearchPerSecond float64 `yaml:"search_per_second"`
	SearchBurst     int     `yaml:"search_burst"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path: "/data/cartridge.db",
		},
		IGDB: IGDBConfig{
			RequestsPerSecond: 3,
			MaxConcurrent:     4,
			MaxRetries:        3,
		},
		Search: SearchConfig{
			DefaultLimit:      20,
			MaxLimit:          100,
			MinCatalogResults: 5,
			ProviderLimit:     50,
			MaxSisterLookups:  4,
		},
		Cache: CacheConfig{
			Capacity: 100,
			TTLHours: 24,
		},
		Sync: SyncConfig{
			Enabled:        true,
			IntervalHours:  24,
			BatchSize:      250,
			StaleAfterDays: 30,
		},
		Maintenance: MaintenanceConfig{
			Enabled:       true,
			IntervalHours: 24,
		},
		Backup: BackupConfig{
			Enabled:       true,
			IntervalHours: 24,
			Retention:     7,
		},
		RateLimit: RateLimitConfig{
			SearchPerSecond: 5,
			SearchBurst:     10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("CART_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CART_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("CART_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CART_IGDB_CLIENT_ID"); v != "" {
		c.IGDB.ClientID = v
	}
	if v := os.Getenv("CART_IGDB_CLIENT_SECRET"); v != "" {
		c.IGDB.ClientSecret = v
	}
	if v := os.Getenv("CART_FRANCHISE_PATH"); v != "" {
		c.Search.FranchisePath = v
	}
	if v := os.Getenv("CART_WEIGHTS_PATH"); v != "" {
		c.Search.WeightsPath = v
	}
	if v := os.Getenv("CART_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CART_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CART_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.IGDB.RequestsPerSecond <= 0 {
		return fmt.Errorf("igdb requests_per_second must be positive, got %g", c.IGDB.RequestsPerSecond)
	}
	if c.IGDB.MaxConcurrent < 1 {
		return fmt.Errorf("igdb max_concurrent must be at least 1, got %d", c.IGDB.MaxConcurrent)
	}
	if c.IGDB.MaxRetries < 0 {
		return fmt.Errorf("igdb max_retries must not be negative, got %d", c.IGDB.MaxRetries)
	}
	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("search default_limit must be at least 1, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search max_limit %d is below default_limit %d", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit > 100 {
		return fmt.Errorf("search max_limit must not exceed 100, got %d", c.Search.MaxLimit)
	}
	if c.Cache.Capacity < 0 || c.Cache.TTLHours < 0 {
		return fmt.Errorf("cache capacity and ttl_hours must not be negative")
	}
	if c.Backup.Retention < 1 {
		return fmt.Errorf("backup retention must be at least 1, got %d", c.Backup.Retention)
	}
	if c.Backup.MaxAgeDays < 0 {
		return fmt.Errorf("backup max_age_days must not be negative, got %d", c.Backup.MaxAgeDays)
	}
	if c.RateLimit.SearchPerSecond <= 0 {
		return fmt.Errorf("ratelimit search_per_second must be positive, got %g", c.RateLimit.SearchPerSecond)
	}
	if c.RateLimit.SearchBurst < 1 {
		return fmt.Errorf("ratelimit search_burst must be at least 1, got %d", c.RateLimit.SearchBurst)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}

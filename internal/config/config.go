// Package config defines all configuration for the ladder builder.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via LB_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/hubamatyas/ladderbuilder/internal/metadata"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	Folder         string `mapstructure:"folder"`
	Sport          string `mapstructure:"sport"`
	IsMultiprocess bool   `mapstructure:"is_multiprocess"`
	Workers        int    `mapstructure:"workers"`
	BatchSize      int    `mapstructure:"batch_size"`

	Source  SourceConfig  `mapstructure:"source"`
	Store   StoreConfig   `mapstructure:"store"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig addresses the blob store market files are read from.
type SourceConfig struct {
	Bucket          string  `mapstructure:"bucket"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  float64 `mapstructure:"rate_limit_burst"`
}

// StoreConfig addresses the document store the three output streams are
// written to.
type StoreConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// ArchiveConfig holds the archive section of the config file. Enabled is
// loaded but no code path reads it: no GridFS archival runs whether it is
// true or false.
type ArchiveConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("workers", 4)
	v.SetDefault("batch_size", 1000)
	v.SetDefault("source.rate_limit_per_sec", 20.0)
	v.SetDefault("source.rate_limit_burst", 40.0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if uri := os.Getenv("LB_STORE_URI"); uri != "" {
		cfg.Store.URI = uri
	}
	if bucket := os.Getenv("LB_SOURCE_BUCKET"); bucket != "" {
		cfg.Source.Bucket = bucket
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges, including that
// Sport names a sport this build actually supports.
func (c *Config) Validate() error {
	if c.Folder == "" {
		return fmt.Errorf("folder is required")
	}
	if _, err := metadata.ParseSport(c.Sport); err != nil {
		return fmt.Errorf("sport: %w", err)
	}
	if c.Source.Bucket == "" {
		return fmt.Errorf("source.bucket is required (or set LB_SOURCE_BUCKET)")
	}
	if c.Store.URI == "" {
		return fmt.Errorf("store.uri is required (or set LB_STORE_URI)")
	}
	if c.Store.Database == "" {
		return fmt.Errorf("store.database is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0")
	}
	return nil
}

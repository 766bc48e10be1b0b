package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Catalog     CatalogConfig     `koanf:"catalog"`
	Database    DatabaseConfig    `koanf:"database"`
	Cache       CacheConfig       `koanf:"cache"`
	Aggregation AggregationConfig `koanf:"aggregation"`
}

type ServerConfig struct {
	Port   int    `koanf:"port"`
	Host   string `koanf:"host"`
	Mode   string `koanf:"mode"` // debug | release
	APIKey string `koanf:"api_key"`
}

type CatalogConfig struct {
	// SourceType selects where the catalog loads from: csv | postgres.
	SourceType string `koanf:"source_type"`

	// Path is the catalog export file for the csv source.
	Path string `koanf:"path"`

	// RefreshInterval is how often the catalog reloads. Empty or "0"
	// disables periodic refresh (manual refresh stays available).
	RefreshInterval string `koanf:"refresh_interval"`
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type CacheConfig struct {
	// Capacity bounds the number of memoized views per catalog generation.
	Capacity int `koanf:"capacity"`
}

type AggregationConfig struct {
	// WorkerCount is the scan parallelism of the engine; 0 means one
	// worker per CPU.
	WorkerCount int `koanf:"worker_count"`
}

// EffectiveRefreshInterval parses the refresh interval, treating the empty
// string as disabled.
func (c CatalogConfig) EffectiveRefreshInterval() (time.Duration, error) {
	if strings.TrimSpace(c.RefreshInterval) == "" || c.RefreshInterval == "0" {
		return 0, nil
	}
	return time.ParseDuration(c.RefreshInterval)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Catalog.SourceType {
	case "csv":
		if strings.TrimSpace(c.Catalog.Path) == "" {
			return fmt.Errorf("catalog.path is required for the csv source")
		}
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres source")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	default:
		return fmt.Errorf("unsupported catalog.source_type %q (must be csv or postgres)", c.Catalog.SourceType)
	}

	if interval, err := c.Catalog.EffectiveRefreshInterval(); err != nil {
		return fmt.Errorf("invalid catalog.refresh_interval %q: %w", c.Catalog.RefreshInterval, err)
	} else if interval < 0 {
		return fmt.Errorf("catalog.refresh_interval must be >= 0")
	}

	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be > 0")
	}
	if c.Aggregation.WorkerCount < 0 {
		return fmt.Errorf("aggregation.worker_count must be >= 0")
	}

	return nil
}

// Load parses config from file + env and validates it. Environment
// variables use the MARKETLENS_ prefix with __ as the nesting separator,
// e.g. MARKETLENS_SERVER__PORT=9090.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":              8080,
		"server.host":              "0.0.0.0",
		"server.mode":              "release",
		"server.api_key":           "",
		"catalog.source_type":      "csv",
		"catalog.path":             "./catalog.csv",
		"catalog.refresh_interval": "15m",
		"database.dsn":             "",
		"database.max_open_conns":  25,
		"database.max_idle_conns":  25,
		"database.auto_migrate":    true,
		"cache.capacity":           256,
		"aggregation.worker_count": 0,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("MARKETLENS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MARKETLENS_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

package domain

import (
	"fmt"
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Registry RegistryConfig `mapstructure:"registry"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Matching MatchingConfig `mapstructure:"matching"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

// DatabaseConfig represents the postgres connection used for analysis
// persistence and the postgres-backed registry.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// ConnectionString builds a postgres DSN from the configuration.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
	)
}

// URL builds a postgres URL, as consumed by the migration runner.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RegistryConfig selects the client registry backend.
type RegistryConfig struct {
	// Backend is "postgres" or "sqlite".
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// CatalogConfig locates the user-editable benchmark override store.
type CatalogConfig struct {
	OverridesPath string `mapstructure:"overrides_path"`
	// ParseCacheSize bounds the LRU of parsed range expressions.
	ParseCacheSize int `mapstructure:"parse_cache_size"`
}

// CacheConfig represents the redis result cache.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	RedisURL   string        `mapstructure:"redis_url"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	PoolSize   int           `mapstructure:"pool_size"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// MatchingConfig tunes identity resolution.
type MatchingConfig struct {
	// FuzzyThreshold is the minimum normalized name similarity for a
	// low-confidence match.
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	// MaxCandidates bounds the registry read.
	MaxCandidates int `mapstructure:"max_candidates"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewValidationError("server.port", "port must be between 1 and 65535", c.Server.Port)
	}
	switch c.Registry.Backend {
	case "postgres", "sqlite":
	default:
		return NewValidationError("registry.backend", "backend must be postgres or sqlite", c.Registry.Backend)
	}
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 1 {
		return NewValidationError("matching.fuzzy_threshold", "threshold must be within [0,1]", c.Matching.FuzzyThreshold)
	}
	if c.Catalog.ParseCacheSize <= 0 {
		return NewValidationError("catalog.parse_cache_size", "cache size must be positive", c.Catalog.ParseCacheSize)
	}
	return nil
}

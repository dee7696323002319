// Package config provides unified configuration for the dolmetsch gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (DOLMETSCH_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the dolmetsch gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`             // default: "" (all interfaces)
	Port            int           `yaml:"port"`             // default: 8080
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`   // default: 10 MiB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig holds settings for the generate-content backend.
type BackendConfig struct {
	BaseURL      string        `yaml:"base_url"`      // required
	Project      string        `yaml:"project"`       // stamped into every request envelope
	APIKey       string        `yaml:"api_key"`       // optional
	APIKeyFile   string        `yaml:"api_key_file"`  // _file variant for api_key
	Timeout      time.Duration `yaml:"timeout"`       // default: 120s, bounds non-streaming requests
	DefaultModel string        `yaml:"default_model"` // optional
}

// StorageConfig holds usage record persistence settings.
type StorageConfig struct {
	Type       string         `yaml:"type"`        // "none", "memory" or "postgres", default: "memory"
	MaxRecords int            `yaml:"max_records"` // for memory store, default: 10000
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // JWT settings for type=jwt

	// RateLimits maps a service tier to its requests-per-minute budget.
	// DefaultRPM applies to tiers not listed; zero means unlimited.
	RateLimits map[string]int `yaml:"rate_limits"`
	DefaultRPM int            `yaml:"default_rpm"`
}

// APIKeyConfig describes a single API key entry. The json tags cover the
// DOLMETSCH_API_KEYS override, which carries the same entries as a JSON
// array.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file"`
	Subject     string `yaml:"subject" json:"subject"`
	TenantID    string `yaml:"tenant_id" json:"tenant_id"`
	ServiceTier string `yaml:"service_tier" json:"service_tier"`
}

// JWTConfig describes JWT validation settings. Claim names and the cache
// TTL fall back to the auth package defaults when left empty.
type JWTConfig struct {
	Issuer      string        `yaml:"issuer"`
	Audience    string        `yaml:"audience"`
	JWKSURL     string        `yaml:"jwks_url"`
	UserClaim   string        `yaml:"user_claim"`   // default: "sub"
	TenantClaim string        `yaml:"tenant_claim"` // default: "tenant_id"
	ScopesClaim string        `yaml:"scopes_claim"` // default: "scope"
	CacheTTL    time.Duration `yaml:"cache_ttl"`    // default: 1h
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics bool `yaml:"metrics"` // default: true
	Debug   bool `yaml:"debug"`   // default: false
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn" or "error", default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			MaxBodyBytes:    10 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			Timeout: 120 * time.Second,
		},
		Storage: StorageConfig{
			Type:       "memory",
			MaxRecords: 10000,
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

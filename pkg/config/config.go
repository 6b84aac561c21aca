// Package config provides unified configuration for the ensemble
// orchestrator.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ENSEMBLE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the ensemble orchestrator.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Provider      ProviderConfig      `yaml:"provider"`
	Engine        EngineConfig        `yaml:"engine"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds the tool-invocation server settings.
type ServerConfig struct {
	// Transport selects how tools are served: "stdio" or "http".
	Transport    string        `yaml:"transport"`     // default: "stdio"
	Port         int           `yaml:"port"`          // default: 8080, http transport only
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 300s
}

// ProviderConfig holds completion backend settings.
type ProviderConfig struct {
	Type         string        `yaml:"type"`          // "openrouter" or "scripted", default: "openrouter"
	BaseURL      string        `yaml:"base_url"`      // required for type=openrouter
	APIKey       string        `yaml:"api_key"`       // optional
	APIKeyFile   string        `yaml:"api_key_file"`  // _file variant for api_key
	DefaultModel string        `yaml:"default_model"` // optional
	Timeout      time.Duration `yaml:"timeout"`       // default: 120s
	Referer      string        `yaml:"referer"`       // optional attribution header
	Title        string        `yaml:"title"`         // optional attribution header
}

// EngineConfig holds orchestration settings.
type EngineConfig struct {
	// DefaultModels is the ranked model list used when a request does not
	// name models. Empty means the built-in ranking.
	DefaultModels []string `yaml:"default_models"`

	// DefaultModelCount is how many of the default models a request
	// without an explicit model list uses. Default: 3.
	DefaultModelCount int `yaml:"default_model_count"`

	MaxRounds       int    `yaml:"max_rounds"`       // default debate rounds: 3
	SynthesisModel  string `yaml:"synthesis_model"`  // optional override
	ConsensusModel  string `yaml:"consensus_model"`  // optional override
	ConclusionModel string `yaml:"conclusion_model"` // optional override
	ClassifierModel string `yaml:"classifier_model"` // optional override
	HistoryLimit    int    `yaml:"history_limit"`    // default: 50
}

// StorageConfig holds context store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Cache    CacheConfig    `yaml:"cache"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// CacheConfig holds the read-through history cache settings used in
// front of the postgres store.
type CacheConfig struct {
	Enabled          bool `yaml:"enabled"`           // default: true for postgres
	MaxConversations int  `yaml:"max_conversations"` // default: 256
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings for the HTTP transport.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // settings for type=jwt

	// RateLimits maps a service tier to its per-minute request budget.
	// A missing tier is unlimited.
	RateLimits map[string]int `yaml:"rate_limits"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key"`
	KeyFile     string `yaml:"key_file"` // _file variant for key
	Subject     string `yaml:"subject"`
	TenantID    string `yaml:"tenant_id"`
	ServiceTier string `yaml:"service_tier"`
}

// JWTConfig holds HMAC JWT verification settings.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	Issuer     string `yaml:"issuer"`      // optional expected issuer
	Audience   string `yaml:"audience"`    // optional expected audience
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Transport:    "stdio",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
		},
		Provider: ProviderConfig{
			Type:    "openrouter",
			Timeout: 120 * time.Second,
		},
		Engine: EngineConfig{
			DefaultModelCount: 3,
			MaxRounds:         3,
			HistoryLimit:      50,
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Cache: CacheConfig{
				Enabled:          true,
				MaxConversations: 256,
			},
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

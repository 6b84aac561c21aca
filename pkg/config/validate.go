package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.transport must be a known value.
	switch c.Server.Transport {
	case "stdio", "http":
		// valid
	default:
		errs = append(errs, fmt.Errorf("server.transport must be \"stdio\" or \"http\", got %q", c.Server.Transport))
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// provider.type must be a known value.
	switch c.Provider.Type {
	case "openrouter", "scripted":
		// valid
	default:
		errs = append(errs, fmt.Errorf("provider.type must be \"openrouter\" or \"scripted\", got %q", c.Provider.Type))
	}

	// provider.base_url is required for the openrouter provider.
	if c.Provider.Type == "openrouter" && c.Provider.BaseURL == "" {
		errs = append(errs, fmt.Errorf("provider.base_url is required when provider.type is \"openrouter\""))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	// auth.type=apikey needs at least one key entry.
	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
	}

	// auth.type=jwt needs a secret.
	if c.Auth.Type == "jwt" && c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\""))
	}

	// Auth only guards the HTTP transport.
	if c.Server.Transport == "stdio" && c.Auth.Type != "none" {
		errs = append(errs, fmt.Errorf("auth.type %q requires server.transport \"http\"", c.Auth.Type))
	}

	for tier, limit := range c.Auth.RateLimits {
		if limit <= 0 {
			errs = append(errs, fmt.Errorf("auth.rate_limits[%q] must be > 0, got %d", tier, limit))
		}
	}

	return errors.Join(errs...)
}

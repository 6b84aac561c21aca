package openrouter

import "time"

// Config holds connection settings for the OpenRouter adapter.
type Config struct {
	// BaseURL is the backend base URL (e.g., "https://openrouter.ai/api").
	// The adapter appends /v1/chat/completions and /v1/models.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// DefaultModel is used when a call does not specify a model.
	DefaultModel string

	// Timeout bounds each HTTP call. Default: 120s.
	Timeout time.Duration

	// Referer and Title are optional OpenRouter attribution headers
	// (HTTP-Referer and X-Title).
	Referer string
	Title   string
}

// defaults applies default values for unset configuration fields.
func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.DefaultModel == "" {
		c.DefaultModel = "openai/gpt-4o"
	}
}

package provider

import (
	"context"

	"github.com/ensembled/ensemble/pkg/api"
)

// Provider abstracts a completion backend. Implementations must be safe
// for concurrent use by multiple goroutines: the Parallel strategy issues
// overlapping calls against a single Provider.
type Provider interface {
	// Name returns the provider identifier (e.g., "openrouter").
	Name() string

	// Complete generates text for a single prompt.
	Complete(ctx context.Context, prompt string, opts *Options) (string, error)

	// CompleteWithContext generates text for an ordered message list,
	// oldest first. The final message is expected to carry the prompt.
	CompleteWithContext(ctx context.Context, messages []api.ContextMessage, opts *Options) (string, error)

	// ListModels returns models available from the backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// Options are the per-call completion parameters. A nil *Options means
// all backend defaults.
type Options struct {
	// Model is the model identifier. Empty means the provider's
	// configured default model.
	Model string

	// Temperature biases sampling. Nil means the backend default (0.7
	// for OpenRouter-style backends).
	Temperature *float64

	MaxTokens        *int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Stop             []string

	// IncludeReasoning asks for reasoning content where supported.
	IncludeReasoning bool
}

// ModelInfo holds information about a model served by the provider.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// Float64 returns a pointer to v. Convenience for building Options.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v. Convenience for building Options.
func Int(v int) *int { return &v }

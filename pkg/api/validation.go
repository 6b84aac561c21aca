package api

import (
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxPromptSize int
	MaxModels     int
	MaxRounds     int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxPromptSize: 1 * 1024 * 1024, // 1MB
		MaxModels:     16,
		MaxRounds:     10,
	}
}

// ValidateRequest checks an OrchestrationRequest for validity. It returns
// an *APIError describing the first validation failure, or nil if the
// request is valid. No provider call is made for an invalid request.
func ValidateRequest(req *OrchestrationRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Prompt) == "" {
		return NewInvalidRequestError("prompt", "prompt is required")
	}

	if cfg.MaxPromptSize > 0 && len(req.Prompt) > cfg.MaxPromptSize {
		return NewInvalidRequestError("prompt",
			fmt.Sprintf("prompt exceeds maximum of %d bytes", cfg.MaxPromptSize))
	}

	if req.Strategy == "" {
		return NewInvalidRequestError("strategy", "strategy is required")
	}

	if !req.Strategy.Valid() {
		return NewInvalidRequestError("strategy",
			fmt.Sprintf("unsupported strategy %q", string(req.Strategy)))
	}

	if cfg.MaxModels > 0 && len(req.Models) > cfg.MaxModels {
		return NewInvalidRequestError("models",
			fmt.Sprintf("models exceeds maximum of %d entries", cfg.MaxModels))
	}

	for i, m := range req.Models {
		if strings.TrimSpace(m) == "" {
			return NewInvalidRequestError("models",
				fmt.Sprintf("models[%d] must not be empty", i))
		}
	}

	if req.Options.MaxRounds < 0 {
		return NewInvalidRequestError("options.max_rounds", "max_rounds must be positive")
	}

	if cfg.MaxRounds > 0 && req.Options.MaxRounds > cfg.MaxRounds {
		return NewInvalidRequestError("options.max_rounds",
			fmt.Sprintf("max_rounds exceeds maximum of %d", cfg.MaxRounds))
	}

	if req.Options.Temperature != nil {
		if *req.Options.Temperature < 0.0 || *req.Options.Temperature > 2.0 {
			return NewInvalidRequestError("options.temperature",
				"temperature must be between 0.0 and 2.0")
		}
	}

	if req.ConversationID != "" && !ValidateConversationID(req.ConversationID) {
		return NewInvalidRequestError("conversation_id",
			fmt.Sprintf("malformed conversation ID %q", req.ConversationID))
	}

	return nil
}

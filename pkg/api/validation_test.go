package api

import (
	"strings"
	"testing"
)

func validRequest() *OrchestrationRequest {
	return &OrchestrationRequest{
		Prompt:   "Explain the CAP theorem",
		Strategy: StrategyParallel,
		Models:   []string{"openai/gpt-4o", "anthropic/claude-3.5-sonnet"},
	}
}

func TestValidateRequest_Valid(t *testing.T) {
	if err := ValidateRequest(validRequest(), DefaultValidationConfig()); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestValidateRequest_Failures(t *testing.T) {
	temp := 3.5

	tests := []struct {
		name      string
		mutate    func(*OrchestrationRequest)
		wantParam string
	}{
		{
			name:      "empty prompt",
			mutate:    func(r *OrchestrationRequest) { r.Prompt = "   " },
			wantParam: "prompt",
		},
		{
			name:      "oversized prompt",
			mutate:    func(r *OrchestrationRequest) { r.Prompt = strings.Repeat("x", 2*1024*1024) },
			wantParam: "prompt",
		},
		{
			name:      "missing strategy",
			mutate:    func(r *OrchestrationRequest) { r.Strategy = "" },
			wantParam: "strategy",
		},
		{
			name:      "unsupported strategy",
			mutate:    func(r *OrchestrationRequest) { r.Strategy = "tournament" },
			wantParam: "strategy",
		},
		{
			name:      "empty model entry",
			mutate:    func(r *OrchestrationRequest) { r.Models = []string{"openai/gpt-4o", ""} },
			wantParam: "models",
		},
		{
			name:      "negative rounds",
			mutate:    func(r *OrchestrationRequest) { r.Options.MaxRounds = -1 },
			wantParam: "options.max_rounds",
		},
		{
			name:      "temperature out of range",
			mutate:    func(r *OrchestrationRequest) { r.Options.Temperature = &temp },
			wantParam: "options.temperature",
		},
		{
			name:      "malformed conversation ID",
			mutate:    func(r *OrchestrationRequest) { r.ConversationID = "not-a-conv-id" },
			wantParam: "conversation_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := ValidateRequest(req, DefaultValidationConfig())
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if err.Type != ErrorTypeInvalidRequest {
				t.Errorf("expected invalid_request, got %s", err.Type)
			}
			if err.Param != tt.wantParam {
				t.Errorf("expected param %q, got %q", tt.wantParam, err.Param)
			}
		})
	}
}

func TestValidateRequest_UnlimitedWhenZero(t *testing.T) {
	req := validRequest()
	req.Prompt = strings.Repeat("x", 2*1024*1024)

	cfg := ValidationConfig{} // all limits disabled
	if err := ValidateRequest(req, cfg); err != nil {
		t.Fatalf("expected no error with disabled limits, got %v", err)
	}
}

func TestStrategy_Valid(t *testing.T) {
	for _, s := range KnownStrategies {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if Strategy("roundrobin").Valid() {
		t.Error("expected unknown strategy to be invalid")
	}
}

func TestWantsContext_Default(t *testing.T) {
	req := validRequest()
	if !req.WantsContext() {
		t.Error("nil UseContext should default to true")
	}

	f := false
	req.UseContext = &f
	if req.WantsContext() {
		t.Error("explicit false UseContext should disable context")
	}
}

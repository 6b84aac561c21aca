package mcp

import (
	"strings"
	"testing"
	"time"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/storage"
)

func TestRenderResult_Debate(t *testing.T) {
	result := &api.OrchestrationResult{
		Strategy: api.StrategyDebate,
		Models:   []string{"model-a", "model-b"},
		Rounds: []api.DebateRound{
			{Round: 1, Responses: []api.ModelResponse{
				{Model: "model-a", Response: "position a"},
				{Model: "model-b", Response: "position b"},
			}},
			{Round: 2, Responses: []api.ModelResponse{
				{Model: "model-a", Response: "rebuttal a"},
			}},
		},
		Conclusion:     "the conclusion",
		ConversationID: "conv_1",
	}

	text := renderResult(result)
	for _, want := range []string{
		"Strategy: debate (models: model-a, model-b)",
		"=== Round 1 ===",
		"[model-a]:\nposition a",
		"=== Round 2 ===",
		"rebuttal a",
		"=== Conclusion ===\nthe conclusion",
		"Conversation: conv_1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestRenderResult_SpecialistRouting(t *testing.T) {
	result := &api.OrchestrationResult{
		Strategy: api.StrategySpecialist,
		Models:   []string{"model-a"},
		Routing: &api.Routing{
			Primary:    "coding",
			Secondary:  "general",
			Complexity: "medium",
			Fallback:   true,
		},
		Responses: []api.ModelResponse{{Model: "model-a", Response: "answer"}},
	}

	text := renderResult(result)
	if !strings.Contains(text, "Routing: coding/general, complexity medium (classifier fallback)") {
		t.Errorf("routing line missing or wrong:\n%s", text)
	}
}

func TestRenderResult_Failures(t *testing.T) {
	result := &api.OrchestrationResult{
		Strategy:  api.StrategyParallel,
		Models:    []string{"model-a", "model-b"},
		Responses: []api.ModelResponse{{Model: "model-a", Response: "ok"}},
		Failures:  []api.ModelFailure{{Model: "model-b", Reason: "timeout"}},
		Synthesis: "merged",
	}

	text := renderResult(result)
	if !strings.Contains(text, "(failed: model-b: timeout)") {
		t.Errorf("failure line missing:\n%s", text)
	}
	if !strings.Contains(text, "=== Synthesis ===\nmerged") {
		t.Errorf("synthesis section missing:\n%s", text)
	}
}

func TestRenderHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	msgs := []storage.Message{
		{Role: api.RoleUser, Content: "a question", CreatedAt: at},
		{Role: api.RoleAssistant, Content: "an answer", Model: "model-a", CreatedAt: at},
	}

	text := renderHistory("conv_1", msgs)
	for _, want := range []string{
		"Conversation conv_1 (2 messages)",
		"[user] 2026-03-01 12:30:00",
		"[assistant/model-a]",
		"an answer",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	sum := &storage.Summary{
		TotalConversations:   2,
		TotalMessages:        7,
		ModelUsage:           []storage.ModelUsage{{Model: "model-a", Count: 4}},
		LatestConversationID: "conv_9",
	}

	text := renderSummary(sum)
	for _, want := range []string{
		"Conversations: 2",
		"Messages: 7",
		"model-a: 4",
		"Latest conversation: conv_9",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestRenderModels_Empty(t *testing.T) {
	if text := renderModels(nil); !strings.Contains(text, "No models") {
		t.Errorf("unexpected empty rendering: %q", text)
	}
}

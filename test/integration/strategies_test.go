package integration

import (
	"strings"
	"testing"
)

func TestSequentialStrategy(t *testing.T) {
	session := newSession(t)

	result := callTool(t, session, "orchestrate", map[string]any{
		"prompt":   "Compare optimistic and pessimistic locking.",
		"strategy": "sequential",
		"models":   []string{"openai/gpt-4o", "anthropic/claude-3.5-sonnet"},
	})

	var out orchestrateResult
	decodeStructured(t, result, &out)

	if out.Strategy != "sequential" {
		t.Errorf("strategy = %q, want sequential", out.Strategy)
	}
	if len(out.Responses) != 2 {
		t.Fatalf("len(responses) = %d, want 2", len(out.Responses))
	}
	if out.Responses[0].Model != "openai/gpt-4o" {
		t.Errorf("responses[0].model = %q, want openai/gpt-4o", out.Responses[0].Model)
	}
	// The second model refines: its prompt embeds the original question.
	if !strings.Contains(out.Responses[1].Response, "Original question") {
		t.Errorf("second response is not a refinement: %q", out.Responses[1].Response)
	}
	if out.ConversationID == "" {
		t.Error("expected a conversation ID")
	}

	text := textContent(result)
	for _, want := range []string{"Strategy: sequential", "--- openai/gpt-4o ---"} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q:\n%s", want, text)
		}
	}
}

func TestParallelStrategyDefaults(t *testing.T) {
	session := newSession(t)

	result := callTool(t, session, "orchestrate", map[string]any{
		"prompt":   "What makes a good cache eviction policy?",
		"strategy": "parallel",
	})

	var out orchestrateResult
	decodeStructured(t, result, &out)

	// No explicit models: the first three of the default ranking run.
	want := []string{"openai/gpt-4o", "anthropic/claude-3.5-sonnet", "google/gemini-pro-1.5"}
	if len(out.Models) != len(want) {
		t.Fatalf("models = %v, want %v", out.Models, want)
	}
	for i := range want {
		if out.Models[i] != want[i] {
			t.Errorf("models[%d] = %q, want %q", i, out.Models[i], want[i])
		}
	}

	if len(out.Responses) != 3 {
		t.Fatalf("len(responses) = %d, want 3", len(out.Responses))
	}
	for _, r := range out.Responses {
		if !strings.HasPrefix(r.Response, r.Model) {
			t.Errorf("response not attributed to its model: %+v", r)
		}
	}
	if out.Synthesis != "Synthesized by anthropic/claude-3.5-sonnet" {
		t.Errorf("synthesis = %q", out.Synthesis)
	}
	if len(out.Failures) != 0 {
		t.Errorf("unexpected failures: %v", out.Failures)
	}
}

func TestDebateStrategy(t *testing.T) {
	session := newSession(t)

	result := callTool(t, session, "orchestrate", map[string]any{
		"prompt":     "Should services share a database?",
		"strategy":   "debate",
		"models":     []string{"openai/gpt-4o", "mistralai/mistral-large"},
		"max_rounds": 2,
	})

	var out orchestrateResult
	decodeStructured(t, result, &out)

	if len(out.Rounds) != 2 {
		t.Fatalf("len(rounds) = %d, want 2", len(out.Rounds))
	}
	for i, round := range out.Rounds {
		if round.Round != i+1 {
			t.Errorf("rounds[%d].round = %d, want %d", i, round.Round, i+1)
		}
		if len(round.Responses) != 2 {
			t.Errorf("round %d has %d responses, want 2", round.Round, len(round.Responses))
		}
	}
	// Round 2 argues over the transcript, not the bare question.
	if !strings.Contains(out.Rounds[1].Responses[0].Response, "Debate topic") {
		t.Errorf("round 2 response ignores the transcript: %q", out.Rounds[1].Responses[0].Response)
	}
	if out.Conclusion != "Concluded by anthropic/claude-3.5-sonnet" {
		t.Errorf("conclusion = %q", out.Conclusion)
	}

	text := textContent(result)
	for _, want := range []string{"=== Round 1 ===", "=== Round 2 ===", "=== Conclusion ==="} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q:\n%s", want, text)
		}
	}
}

func TestConsensusStrategy(t *testing.T) {
	session := newSession(t)

	result := callTool(t, session, "orchestrate", map[string]any{
		"prompt":   "Is eventual consistency acceptable for a shopping cart?",
		"strategy": "consensus",
		"models":   []string{"openai/gpt-4o", "anthropic/claude-3.5-sonnet"},
	})

	var out orchestrateResult
	decodeStructured(t, result, &out)

	if out.Strategy != "consensus" {
		t.Errorf("strategy = %q, want consensus", out.Strategy)
	}
	if out.Consensus != "Consensus by openai/gpt-4o" {
		t.Errorf("consensus = %q", out.Consensus)
	}
	// Consensus runs the full parallel strategy first, synthesis included.
	if out.Synthesis == "" {
		t.Error("expected the parallel synthesis to be retained")
	}
}

func TestSpecialistRouting(t *testing.T) {
	session := newSession(t)

	result := callTool(t, session, "orchestrate", map[string]any{
		"prompt":   "Design the storage architecture for a multi-region queue.",
		"strategy": "specialist",
	})

	var out orchestrateResult
	decodeStructured(t, result, &out)

	if out.Routing == nil {
		t.Fatal("expected a routing decision")
	}
	if out.Routing.Primary != "architecture" || out.Routing.Complexity != "high" {
		t.Errorf("routing = %+v, want architecture/high", out.Routing)
	}
	if out.Routing.Fallback {
		t.Error("routing should not be a classifier fallback")
	}

	// High complexity consults three specialists, ranked for the
	// category and filtered by the default selection.
	want := []string{"anthropic/claude-3.5-sonnet", "google/gemini-pro-1.5", "openai/gpt-4o"}
	if len(out.Models) != len(want) {
		t.Fatalf("models = %v, want %v", out.Models, want)
	}
	for i := range want {
		if out.Models[i] != want[i] {
			t.Errorf("models[%d] = %q, want %q", i, out.Models[i], want[i])
		}
	}
	if len(out.Responses) != 3 {
		t.Errorf("len(responses) = %d, want 3", len(out.Responses))
	}
}

func TestSpecialistClassifierFallback(t *testing.T) {
	session := newSession(t)

	result := callTool(t, session, "orchestrate", map[string]any{
		"prompt":   "Something unclassifiable.",
		"strategy": "specialist",
	})

	var out orchestrateResult
	decodeStructured(t, result, &out)

	if out.Routing == nil {
		t.Fatal("expected a routing decision")
	}
	if !out.Routing.Fallback {
		t.Error("expected the classifier fallback flag")
	}
	// The fixed default classification: coding, medium complexity.
	if out.Routing.Primary != "coding" {
		t.Errorf("routing.primary = %q, want coding", out.Routing.Primary)
	}
	if len(out.Models) != 2 {
		t.Errorf("models = %v, want 2 specialists", out.Models)
	}
}

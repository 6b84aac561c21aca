package mcp

import (
	"fmt"
	"strings"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/storage"
)

// renderResult renders an orchestration result as readable text, grouped
// the way each strategy is naturally consumed: per-model sections first,
// the folded answer last.
func renderResult(result *api.OrchestrationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Strategy: %s (models: %s)\n", result.Strategy, strings.Join(result.Models, ", "))

	if result.Routing != nil {
		fmt.Fprintf(&b, "Routing: %s/%s, complexity %s",
			result.Routing.Primary, result.Routing.Secondary, result.Routing.Complexity)
		if result.Routing.Fallback {
			b.WriteString(" (classifier fallback)")
		}
		b.WriteString("\n")
	}

	for _, round := range result.Rounds {
		fmt.Fprintf(&b, "\n=== Round %d ===\n", round.Round)
		for _, r := range round.Responses {
			fmt.Fprintf(&b, "[%s]:\n%s\n", r.Model, r.Response)
		}
	}

	for _, r := range result.Responses {
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", r.Model, r.Response)
	}

	for _, f := range result.Failures {
		fmt.Fprintf(&b, "\n(failed: %s: %s)\n", f.Model, f.Reason)
	}

	if result.Synthesis != "" {
		fmt.Fprintf(&b, "\n=== Synthesis ===\n%s\n", result.Synthesis)
	}
	if result.Conclusion != "" {
		fmt.Fprintf(&b, "\n=== Conclusion ===\n%s\n", result.Conclusion)
	}
	if result.Consensus != "" {
		fmt.Fprintf(&b, "\n=== Consensus ===\n%s\n", result.Consensus)
	}

	if result.ConversationID != "" {
		fmt.Fprintf(&b, "\nConversation: %s\n", result.ConversationID)
	}

	return b.String()
}

// renderHistory renders a conversation transcript oldest first.
func renderHistory(conversationID string, msgs []storage.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Conversation %s (%d messages)\n", conversationID, len(msgs))
	for _, m := range msgs {
		label := string(m.Role)
		if m.Model != "" {
			label = fmt.Sprintf("%s/%s", m.Role, m.Model)
		}
		fmt.Fprintf(&b, "\n[%s] %s\n%s\n", label, m.CreatedAt.Format("2006-01-02 15:04:05"), m.Content)
	}

	return b.String()
}

// renderSummary renders the store-wide statistics.
func renderSummary(sum *storage.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Conversations: %d\nMessages: %d\n", sum.TotalConversations, sum.TotalMessages)
	if len(sum.ModelUsage) > 0 {
		b.WriteString("Model usage:\n")
		for _, u := range sum.ModelUsage {
			fmt.Fprintf(&b, "  %s: %d\n", u.Model, u.Count)
		}
	}
	if sum.LatestConversationID != "" {
		fmt.Fprintf(&b, "Latest conversation: %s\n", sum.LatestConversationID)
	}

	return b.String()
}

// renderModels renders the available model listing.
func renderModels(models []string) string {
	if len(models) == 0 {
		return "No models reported by the backend.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available models (%d):\n", len(models))
	for _, m := range models {
		fmt.Fprintf(&b, "  %s\n", m)
	}
	return b.String()
}

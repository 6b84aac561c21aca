package engine

import (
	"fmt"
	"strings"

	"github.com/ensembled/ensemble/pkg/api"
)

// refinementPrompt is the synthetic prompt handed to every Sequential
// model after the first. It embeds the original prompt and the previous
// model's raw answer verbatim.
func refinementPrompt(original, previous string) string {
	var b strings.Builder
	b.WriteString("Original question: ")
	b.WriteString(original)
	b.WriteString("\n\nPrevious response:\n")
	b.WriteString(previous)
	b.WriteString("\n\nPlease improve, refine, or add to the previous response. ")
	b.WriteString("Keep what is correct and strengthen what is weak.")
	return b.String()
}

// synthesisPrompt lists every successful Parallel response verbatim and
// asks the synthesis model for a single merged answer.
func synthesisPrompt(original string, responses []api.ModelResponse) string {
	var b strings.Builder
	b.WriteString("Multiple AI models answered the following question.\n\n")
	b.WriteString("Question: ")
	b.WriteString(original)
	b.WriteString("\n\n")

	for _, r := range responses {
		fmt.Fprintf(&b, "--- Response from %s ---\n%s\n\n", r.Model, r.Response)
	}

	b.WriteString("Synthesize these responses into a single answer that:\n")
	b.WriteString("1. Incorporates the best insights from each response\n")
	b.WriteString("2. Resolves any contradictions between them\n")
	b.WriteString("3. Provides a clear, actionable answer\n")
	b.WriteString("4. Notes any important caveats or disagreements\n")
	return b.String()
}

// debatePrompt renders the original prompt plus every prior round's
// transcript, labeled by model and round number, and asks for a
// perspective, counter-argument, or refinement.
func debatePrompt(original string, rounds []api.DebateRound) string {
	var b strings.Builder
	b.WriteString("Debate topic: ")
	b.WriteString(original)
	b.WriteString("\n\n")

	for _, round := range rounds {
		fmt.Fprintf(&b, "=== Round %d ===\n", round.Round)
		for _, r := range round.Responses {
			fmt.Fprintf(&b, "[%s]:\n%s\n\n", r.Model, r.Response)
		}
	}

	b.WriteString("Considering the discussion so far, provide your perspective, ")
	b.WriteString("counter-argument, or refinement. Be specific about where you ")
	b.WriteString("agree or disagree and why.")
	return b.String()
}

// conclusionPrompt closes a debate: summarize, identify agreement and
// disagreement, and give a reasoned final perspective.
func conclusionPrompt(original string, rounds []api.DebateRound) string {
	var b strings.Builder
	b.WriteString("The following is a multi-round debate between AI models.\n\n")
	b.WriteString("Topic: ")
	b.WriteString(original)
	b.WriteString("\n\n")

	for _, round := range rounds {
		fmt.Fprintf(&b, "=== Round %d ===\n", round.Round)
		for _, r := range round.Responses {
			fmt.Fprintf(&b, "[%s]:\n%s\n\n", r.Model, r.Response)
		}
	}

	b.WriteString("Provide a conclusion that:\n")
	b.WriteString("1. Summarizes the key points raised\n")
	b.WriteString("2. Identifies where the models agree and disagree\n")
	b.WriteString("3. Gives a reasoned final perspective\n")
	b.WriteString("4. Suggests a practical approach\n")
	return b.String()
}

// consensusPrompt asks for the common ground across the collected
// responses.
func consensusPrompt(original string, responses []api.ModelResponse) string {
	var b strings.Builder
	b.WriteString("Multiple AI models answered the following question.\n\n")
	b.WriteString("Question: ")
	b.WriteString(original)
	b.WriteString("\n\n")

	for _, r := range responses {
		fmt.Fprintf(&b, "--- Response from %s ---\n%s\n\n", r.Model, r.Response)
	}

	b.WriteString("Analyze these responses and provide:\n")
	b.WriteString("1. Common themes shared across the responses\n")
	b.WriteString("2. Key differences between them\n")
	b.WriteString("3. A consensus statement representing the shared position\n")
	b.WriteString("4. Caveats where no consensus exists\n")
	return b.String()
}

// classificationPrompt asks the classifier model to categorize the
// prompt into the fixed taxonomy and answer with a strict JSON object.
func classificationPrompt(prompt string) string {
	var b strings.Builder
	b.WriteString("Classify the following request into a primary and secondary ")
	b.WriteString("category from: coding, debugging, architecture, planning, ")
	b.WriteString("analysis, creative. Rate its complexity as low, medium, or high.\n\n")
	b.WriteString("Request: ")
	b.WriteString(prompt)
	b.WriteString("\n\nAnswer with only a JSON object of this exact shape:\n")
	b.WriteString(`{"primary": "...", "secondary": "...", "complexity": "..."}`)
	return b.String()
}

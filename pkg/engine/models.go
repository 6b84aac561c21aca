package engine

// DefaultModelRanking returns the fixed ranked default model list. The
// engine selects the first DefaultModelCount entries when a request
// carries no explicit models.
func DefaultModelRanking() []string {
	return []string{
		"openai/gpt-4o",
		"anthropic/claude-3.5-sonnet",
		"google/gemini-pro-1.5",
		"meta-llama/llama-3.1-70b-instruct",
		"mistralai/mistral-large",
	}
}

// Specialist task categories. The classifier must answer with one of
// these; anything else falls back to the default classification.
const (
	categoryCoding       = "coding"
	categoryDebugging    = "debugging"
	categoryArchitecture = "architecture"
	categoryPlanning     = "planning"
	categoryAnalysis     = "analysis"
	categoryCreative     = "creative"
)

// knownCategories is the fixed classification taxonomy.
var knownCategories = map[string]bool{
	categoryCoding:       true,
	categoryDebugging:    true,
	categoryArchitecture: true,
	categoryPlanning:     true,
	categoryAnalysis:     true,
	categoryCreative:     true,
}

// specialistRouting maps a task category to its ranked preferred models.
// A mapped model is only used when it also appears in the request's
// model list (or the default selection), which acts as an availability
// filter.
var specialistRouting = map[string][]string{
	categoryCoding: {
		"anthropic/claude-3.5-sonnet",
		"openai/gpt-4o",
		"meta-llama/llama-3.1-70b-instruct",
	},
	categoryDebugging: {
		"openai/gpt-4o",
		"anthropic/claude-3.5-sonnet",
		"mistralai/mistral-large",
	},
	categoryArchitecture: {
		"anthropic/claude-3.5-sonnet",
		"google/gemini-pro-1.5",
		"openai/gpt-4o",
	},
	categoryPlanning: {
		"openai/gpt-4o",
		"google/gemini-pro-1.5",
		"anthropic/claude-3.5-sonnet",
	},
	categoryAnalysis: {
		"google/gemini-pro-1.5",
		"openai/gpt-4o",
		"anthropic/claude-3.5-sonnet",
	},
	categoryCreative: {
		"anthropic/claude-3.5-sonnet",
		"mistralai/mistral-large",
		"openai/gpt-4o",
	},
}

// modelCountForComplexity maps a complexity rating to how many
// specialists are consulted.
func modelCountForComplexity(complexity string) int {
	switch complexity {
	case "low":
		return 1
	case "high":
		return 3
	default: // medium
		return 2
	}
}

package engine

import "github.com/ensembled/ensemble/pkg/api"

// Config holds engine settings. The zero value is usable: every field
// falls back to the defaults below.
type Config struct {
	// DefaultModels is the ranked model list used when a request does not
	// name models. The first DefaultModelCount entries are selected.
	DefaultModels []string

	// DefaultModelCount is how many of DefaultModels a request without an
	// explicit model list uses. Default: 3.
	DefaultModelCount int

	// SynthesisModel produces the Parallel strategy's synthesis.
	SynthesisModel string

	// ConsensusModel produces the Consensus strategy's consensus
	// statement. Deliberately distinct from SynthesisModel.
	ConsensusModel string

	// ConclusionModel produces the Debate strategy's conclusion.
	ConclusionModel string

	// ClassifierModel is the lightweight model used for Specialist
	// prompt classification.
	ClassifierModel string

	// DefaultMaxRounds is the debate round count when the request does
	// not set one. Default: 3.
	DefaultMaxRounds int

	// HistoryLimit caps how many persisted messages are injected as
	// conversation history. Default: storage.DefaultHistoryLimit.
	HistoryLimit int

	// Validation holds request validation limits.
	Validation api.ValidationConfig
}

// foldTemperature is the fixed low temperature for synthesis and
// classification calls, biasing toward a stable, literal merge.
const foldTemperature = 0.3

// defaults fills unset fields.
func (c *Config) defaults() {
	if len(c.DefaultModels) == 0 {
		c.DefaultModels = DefaultModelRanking()
	}
	if c.DefaultModelCount == 0 {
		c.DefaultModelCount = 3
	}
	if c.SynthesisModel == "" {
		c.SynthesisModel = "anthropic/claude-3.5-sonnet"
	}
	if c.ConsensusModel == "" {
		c.ConsensusModel = "openai/gpt-4o"
	}
	if c.ConclusionModel == "" {
		c.ConclusionModel = "anthropic/claude-3.5-sonnet"
	}
	if c.ClassifierModel == "" {
		c.ClassifierModel = "openai/gpt-4o-mini"
	}
	if c.DefaultMaxRounds == 0 {
		c.DefaultMaxRounds = 3
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 50
	}
	if c.Validation == (api.ValidationConfig{}) {
		c.Validation = api.DefaultValidationConfig()
	}
}

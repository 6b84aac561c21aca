package api

import "time"

// Strategy identifies one of the five orchestration algorithms.
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyParallel   Strategy = "parallel"
	StrategyDebate     Strategy = "debate"
	StrategyConsensus  Strategy = "consensus"
	StrategySpecialist Strategy = "specialist"
)

// KnownStrategies lists every recognized strategy value.
var KnownStrategies = []Strategy{
	StrategySequential,
	StrategyParallel,
	StrategyDebate,
	StrategyConsensus,
	StrategySpecialist,
}

// Valid reports whether s is one of the recognized strategies.
func (s Strategy) Valid() bool {
	for _, k := range KnownStrategies {
		if s == k {
			return true
		}
	}
	return false
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ContextMessage is a transient role/content pair used to build provider
// calls. The context store persists a superset with IDs and timestamps.
type ContextMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// OrchestrationOptions tunes strategy execution.
type OrchestrationOptions struct {
	// MaxRounds is the number of debate rounds. Default: 3.
	MaxRounds int `json:"max_rounds,omitempty"`

	// Temperature overrides the provider default for the per-model calls.
	Temperature *float64 `json:"temperature,omitempty"`

	// IncludeReasoning asks providers that support it to include
	// reasoning content.
	IncludeReasoning bool `json:"include_reasoning,omitempty"`
}

// OrchestrationRequest describes one orchestrate invocation. It is
// immutable once constructed; the engine never mutates it.
type OrchestrationRequest struct {
	// Prompt is the user prompt fanned out to the models.
	Prompt string `json:"prompt"`

	// Strategy selects the orchestration algorithm.
	Strategy Strategy `json:"strategy"`

	// Models is the ordered list of model identifiers to use. Empty means
	// the engine substitutes its default ranked list.
	Models []string `json:"models,omitempty"`

	// Options holds strategy tuning knobs.
	Options OrchestrationOptions `json:"options,omitempty"`

	// UseContext controls conversation persistence. Nil defaults to true.
	UseContext *bool `json:"use_context,omitempty"`

	// ConversationID is the explicit conversation handle. Empty with
	// UseContext enabled means the engine starts a new conversation.
	ConversationID string `json:"conversation_id,omitempty"`
}

// WantsContext resolves the UseContext default (true when unset).
func (r *OrchestrationRequest) WantsContext() bool {
	if r.UseContext == nil {
		return true
	}
	return *r.UseContext
}

// ModelResponse is one model's completion, captured once per provider call.
type ModelResponse struct {
	Model     string    `json:"model"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// ModelFailure records a dropped per-model call in the Parallel strategy.
// The reason is kept attached to the outcome instead of being discarded
// after logging.
type ModelFailure struct {
	Model  string `json:"model"`
	Reason string `json:"reason"`
}

// DebateRound holds every model's contribution for one debate round.
type DebateRound struct {
	// Round is the 1-based round number.
	Round int `json:"round"`

	// Responses holds one entry per participating model, in model order.
	Responses []ModelResponse `json:"responses"`
}

// Routing explains the Specialist strategy's model selection.
type Routing struct {
	// Primary and Secondary are the classified task categories.
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`

	// Complexity is "low", "medium", or "high".
	Complexity string `json:"complexity"`

	// Fallback is true when the classification call could not be decoded
	// and the fixed default classification was used instead.
	Fallback bool `json:"fallback,omitempty"`

	// Reasons maps each selected model to why it was chosen.
	Reasons map[string]string `json:"reasons,omitempty"`
}

// OrchestrationResult is the structured outcome of one orchestrate call.
// Its constituent messages are persisted incrementally as they are
// produced; the result itself is not persisted as a unit.
type OrchestrationResult struct {
	Strategy Strategy `json:"strategy"`

	// Models lists the model identifiers actually used, in call order.
	Models []string `json:"models"`

	// Responses holds per-model completions for Sequential, Parallel,
	// Consensus, and Specialist.
	Responses []ModelResponse `json:"responses,omitempty"`

	// Failures holds dropped per-model calls (Parallel and the
	// Parallel-derived phase of Consensus only).
	Failures []ModelFailure `json:"failures,omitempty"`

	// Rounds holds the full transcript for Debate.
	Rounds []DebateRound `json:"rounds,omitempty"`

	// Synthesis, Consensus, and Conclusion are the strategy-specific
	// derived texts produced by one extra provider call.
	Synthesis  string `json:"synthesis,omitempty"`
	Consensus  string `json:"consensus,omitempty"`
	Conclusion string `json:"conclusion,omitempty"`

	// Routing is populated by the Specialist strategy.
	Routing *Routing `json:"routing,omitempty"`

	// ConversationID identifies the conversation the call wrote to.
	// Empty when context was disabled.
	ConversationID string `json:"conversation_id,omitempty"`
}

package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ensembled/ensemble/pkg/api"
)

// runDebate runs a fixed number of rounds. The first round sends the
// bare prompt to every model; later rounds embed the full transcript of
// all prior rounds. The store is never read as input here, only written
// at the end. Models within a round run sequentially with the same
// constructed prompt; any provider failure aborts the whole debate.
func (e *Engine) runDebate(ctx context.Context, r *run) (*api.OrchestrationResult, error) {
	maxRounds := r.req.Options.MaxRounds
	if maxRounds == 0 {
		maxRounds = e.cfg.DefaultMaxRounds
	}

	result := &api.OrchestrationResult{
		Strategy: api.StrategyDebate,
		Models:   r.models,
	}

	for round := 1; round <= maxRounds; round++ {
		prompt := r.req.Prompt
		if round > 1 {
			prompt = debatePrompt(r.req.Prompt, result.Rounds)
		}

		entry := api.DebateRound{Round: round}
		for _, model := range r.models {
			text, err := e.provider.Complete(ctx, prompt, r.callOptions(model))
			if err != nil {
				return nil, err
			}
			entry.Responses = append(entry.Responses, api.ModelResponse{
				Model:     model,
				Response:  text,
				Timestamp: time.Now().UTC(),
			})
		}
		result.Rounds = append(result.Rounds, entry)
	}

	conclusion, err := e.provider.Complete(ctx,
		conclusionPrompt(r.req.Prompt, result.Rounds),
		foldOptions(e.cfg.ConclusionModel))
	if err != nil {
		return nil, err
	}
	result.Conclusion = conclusion

	if err := r.append(ctx, api.RoleAssistant, conclusion, "debate-conclusion", map[string]string{
		"models": strings.Join(r.models, ","),
		"rounds": strconv.Itoa(maxRounds),
	}); err != nil {
		return nil, err
	}

	return result, nil
}

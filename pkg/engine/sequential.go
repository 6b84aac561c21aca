package engine

import (
	"context"
	"time"

	"github.com/ensembled/ensemble/pkg/api"
)

// runSequential calls the models in list order. The first model answers
// the original prompt; each subsequent model is asked to refine the
// previous model's raw answer. Every response is persisted before the
// next model runs, so later models also see earlier outputs through the
// injected history. Any provider failure aborts the remaining sequence.
func (e *Engine) runSequential(ctx context.Context, r *run) (*api.OrchestrationResult, error) {
	result := &api.OrchestrationResult{
		Strategy: api.StrategySequential,
		Models:   r.models,
	}

	var previous string
	for i, model := range r.models {
		messages, err := r.history(ctx)
		if err != nil {
			return nil, err
		}

		prompt := r.req.Prompt
		if i > 0 {
			prompt = refinementPrompt(r.req.Prompt, previous)
		}
		messages = append(messages, api.ContextMessage{Role: api.RoleUser, Content: prompt})

		text, err := e.provider.CompleteWithContext(ctx, messages, r.callOptions(model))
		if err != nil {
			return nil, err
		}

		result.Responses = append(result.Responses, api.ModelResponse{
			Model:     model,
			Response:  text,
			Timestamp: time.Now().UTC(),
		})

		if err := r.append(ctx, api.RoleAssistant, text, model, nil); err != nil {
			return nil, err
		}

		previous = text
	}

	return result, nil
}

package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ensembled/ensemble/pkg/api"
)

// callOutcome is the settled result of one fan-out provider call. The
// failure reason stays attached to the outcome instead of being
// discarded after logging.
type callOutcome struct {
	index int
	model string
	text  string
	err   error
}

// runParallel issues one provider call per model concurrently, joins the
// outcomes, and folds the successes into a synthesis via one extra call
// to the fixed synthesis model. Per-call failures are dropped from the
// responses (with their reason retained in the result); a failing
// synthesis call leaves the synthesis absent rather than failing the
// strategy.
func (e *Engine) runParallel(ctx context.Context, r *run) (*api.OrchestrationResult, error) {
	result := &api.OrchestrationResult{
		Strategy: api.StrategyParallel,
		Models:   r.models,
	}

	// The history is read once and shared: same message list for every
	// model in the batch.
	history, err := r.history(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := e.fanOut(ctx, r, history)

	for _, o := range outcomes {
		if o.err != nil {
			slog.Warn("parallel call dropped",
				"model", o.model,
				"error", o.err,
			)
			result.Failures = append(result.Failures, api.ModelFailure{
				Model:  o.model,
				Reason: o.err.Error(),
			})
			continue
		}
		result.Responses = append(result.Responses, api.ModelResponse{
			Model:     o.model,
			Response:  o.text,
			Timestamp: time.Now().UTC(),
		})
	}

	if len(result.Responses) == 0 {
		return result, nil
	}

	synthesis, err := e.provider.Complete(ctx,
		synthesisPrompt(r.req.Prompt, result.Responses),
		foldOptions(e.cfg.SynthesisModel))
	if err != nil {
		slog.Warn("synthesis call failed", "model", e.cfg.SynthesisModel, "error", err)
		return result, nil
	}
	result.Synthesis = synthesis

	contributors := make([]string, 0, len(result.Responses))
	for _, resp := range result.Responses {
		contributors = append(contributors, resp.Model)
	}
	if err := r.append(ctx, api.RoleAssistant, synthesis, "synthesis", map[string]string{
		"contributors": strings.Join(contributors, ","),
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// fanOut launches one goroutine per model and returns the settled
// outcomes ordered by model index. All calls share the same message
// list: history plus the original prompt.
func (e *Engine) fanOut(ctx context.Context, r *run, history []api.ContextMessage) []callOutcome {
	messages := append(append([]api.ContextMessage(nil), history...),
		api.ContextMessage{Role: api.RoleUser, Content: r.req.Prompt})

	ch := make(chan callOutcome, len(r.models))
	for i, model := range r.models {
		go func(index int, model string) {
			text, err := e.provider.CompleteWithContext(ctx, messages, r.callOptions(model))
			ch <- callOutcome{index: index, model: model, text: text, err: err}
		}(i, model)
	}

	outcomes := make([]callOutcome, len(r.models))
	for range r.models {
		o := <-ch
		outcomes[o.index] = o
	}
	return outcomes
}

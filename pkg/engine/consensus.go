package engine

import (
	"context"

	"github.com/ensembled/ensemble/pkg/api"
)

// runConsensus runs the full Parallel strategy, including its
// synthesis-producing side effects, then issues one further call to a
// different fixed model for the consensus statement. Both the
// synthesis-tagged and the consensus-tagged message land in context.
func (e *Engine) runConsensus(ctx context.Context, r *run) (*api.OrchestrationResult, error) {
	result, err := e.runParallel(ctx, r)
	if err != nil {
		return nil, err
	}
	result.Strategy = api.StrategyConsensus

	if len(result.Responses) == 0 {
		return result, nil
	}

	consensus, err := e.provider.Complete(ctx,
		consensusPrompt(r.req.Prompt, result.Responses),
		foldOptions(e.cfg.ConsensusModel))
	if err != nil {
		return nil, err
	}
	result.Consensus = consensus

	if err := r.append(ctx, api.RoleAssistant, consensus, "consensus", nil); err != nil {
		return nil, err
	}

	return result, nil
}

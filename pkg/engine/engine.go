package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/observability"
	"github.com/ensembled/ensemble/pkg/provider"
	"github.com/ensembled/ensemble/pkg/storage"
)

// Engine coordinates strategy execution between the completion provider
// and the context store. It holds no per-request state: every orchestrate
// call carries its own conversation handle.
type Engine struct {
	provider provider.Provider
	store    storage.Store
	cfg      Config
}

// New creates a new Engine. The provider must not be nil. The store can
// be nil; requests that want context then fail with an invalid_request
// error.
func New(p provider.Provider, store storage.Store, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	cfg.defaults()
	return &Engine{
		provider: p,
		store:    store,
		cfg:      cfg,
	}, nil
}

// Orchestrate validates the request, dispatches to exactly one strategy
// algorithm, and returns the structured result. When context is enabled
// the user prompt is persisted before any provider call; strategy
// algorithms persist their own outputs incrementally as they are
// produced, so context written by completed steps survives a later
// failure.
func (e *Engine) Orchestrate(ctx context.Context, req *api.OrchestrationRequest) (*api.OrchestrationResult, error) {
	start := time.Now()

	if apiErr := api.ValidateRequest(req, e.cfg.Validation); apiErr != nil {
		observability.StrategyExecutionsTotal.WithLabelValues(string(req.Strategy), "invalid").Inc()
		return nil, apiErr
	}

	run, err := e.newRun(ctx, req)
	if err != nil {
		observability.StrategyExecutionsTotal.WithLabelValues(string(req.Strategy), "error").Inc()
		return nil, err
	}

	var result *api.OrchestrationResult
	switch req.Strategy {
	case api.StrategySequential:
		result, err = e.runSequential(ctx, run)
	case api.StrategyParallel:
		result, err = e.runParallel(ctx, run)
	case api.StrategyDebate:
		result, err = e.runDebate(ctx, run)
	case api.StrategyConsensus:
		result, err = e.runConsensus(ctx, run)
	case api.StrategySpecialist:
		result, err = e.runSpecialist(ctx, run)
	default:
		// Unreachable: ValidateRequest rejects unknown strategies.
		err = api.NewInvalidRequestError("strategy",
			fmt.Sprintf("unsupported strategy %q", string(req.Strategy)))
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	observability.StrategyExecutionsTotal.WithLabelValues(string(req.Strategy), status).Inc()
	observability.StrategyDuration.WithLabelValues(string(req.Strategy)).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}

	result.ConversationID = run.conversationID
	return result, nil
}

// run carries the per-invocation state threaded through a strategy:
// the resolved model list and the explicit conversation handle.
type run struct {
	engine *Engine
	req    *api.OrchestrationRequest

	// models is the resolved, never-empty model list.
	models []string

	// useContext mirrors req.WantsContext().
	useContext bool

	// conversationID is the conversation every context write targets.
	// Empty when useContext is false.
	conversationID string
}

// newRun resolves the model list and the conversation handle, and
// persists the user prompt before any provider call is made.
func (e *Engine) newRun(ctx context.Context, req *api.OrchestrationRequest) (*run, error) {
	models := req.Models
	if len(models) == 0 {
		n := e.cfg.DefaultModelCount
		if n > len(e.cfg.DefaultModels) {
			n = len(e.cfg.DefaultModels)
		}
		models = append([]string(nil), e.cfg.DefaultModels[:n]...)
	}

	r := &run{
		engine:     e,
		req:        req,
		models:     models,
		useContext: req.WantsContext(),
	}

	if !r.useContext {
		return r, nil
	}

	if e.store == nil {
		return nil, api.NewInvalidRequestError("use_context",
			"use_context requires a configured context store")
	}

	convID := req.ConversationID
	if convID == "" {
		id, err := e.store.StartConversation(ctx, conversationTitle(req.Prompt))
		if err != nil {
			observability.ContextOperationsTotal.WithLabelValues("start", "error").Inc()
			return nil, err
		}
		observability.ContextOperationsTotal.WithLabelValues("start", "success").Inc()
		convID = id
	}
	r.conversationID = convID

	if err := r.append(ctx, api.RoleUser, req.Prompt, "", nil); err != nil {
		return nil, err
	}

	return r, nil
}

// append persists one message to the run's conversation.
func (r *run) append(ctx context.Context, role api.Role, content, model string, metadata map[string]string) error {
	if !r.useContext {
		return nil
	}

	_, err := r.engine.store.AddMessage(ctx, storage.AddMessageParams{
		ConversationID: r.conversationID,
		Role:           role,
		Content:        content,
		Model:          model,
		Metadata:       metadata,
	})

	status := "success"
	if err != nil {
		status = "error"
	}
	observability.ContextOperationsTotal.WithLabelValues("append", status).Inc()

	return err
}

// history returns the persisted conversation as context messages,
// oldest first. Returns nil without touching the store when context is
// disabled.
func (r *run) history(ctx context.Context) ([]api.ContextMessage, error) {
	if !r.useContext {
		return nil, nil
	}

	msgs, err := r.engine.store.History(ctx, r.conversationID, r.engine.cfg.HistoryLimit)
	if err != nil {
		observability.ContextOperationsTotal.WithLabelValues("history", "error").Inc()
		return nil, err
	}
	observability.ContextOperationsTotal.WithLabelValues("history", "success").Inc()

	out := make([]api.ContextMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, api.ContextMessage{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

// callOptions builds the provider options for a per-model strategy call.
func (r *run) callOptions(model string) *provider.Options {
	return &provider.Options{
		Model:            model,
		Temperature:      r.req.Options.Temperature,
		IncludeReasoning: r.req.Options.IncludeReasoning,
	}
}

// foldOptions builds the provider options for a synthesis, consensus,
// conclusion, or classification call: a fixed model at low temperature.
func foldOptions(model string) *provider.Options {
	return &provider.Options{
		Model:       model,
		Temperature: provider.Float64(foldTemperature),
	}
}

// conversationTitle derives a short conversation title from the prompt.
// Truncation backs up to a rune boundary so the title stays valid UTF-8.
func conversationTitle(prompt string) string {
	title := strings.TrimSpace(prompt)
	if len(title) <= 80 {
		return title
	}
	cut := 80
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	return title[:cut]
}

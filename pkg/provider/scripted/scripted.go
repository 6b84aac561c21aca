// Package scripted provides a deterministic provider.Provider for tests,
// demos, and offline runs. Responses are looked up per model from a fixed
// script; unknown models fall back to an echo of the last prompt.
package scripted

import (
	"context"
	"fmt"
	"sync"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/provider"
)

// Provider replays scripted responses keyed by model.
type Provider struct {
	mu sync.Mutex

	// responses maps a model ID to the queue of responses to replay.
	// When a model's queue is exhausted the last entry repeats.
	responses map[string][]string

	// errs maps a model ID to an error returned instead of a response.
	errs map[string]error

	calls []Call
}

// Call records one completion request for assertions.
type Call struct {
	Model    string
	Prompt   string
	Messages []api.ContextMessage
	Options  *provider.Options
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)

// New creates a scripted provider with per-model response queues.
func New(responses map[string][]string) *Provider {
	if responses == nil {
		responses = make(map[string][]string)
	}
	return &Provider{
		responses: responses,
		errs:      make(map[string]error),
	}
}

// FailModel makes every call for the given model return err.
func (p *Provider) FailModel(model string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[model] = err
}

// Calls returns a copy of all recorded calls in arrival order.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "scripted" }

// Complete replays the next scripted response for the requested model.
func (p *Provider) Complete(ctx context.Context, prompt string, opts *provider.Options) (string, error) {
	return p.CompleteWithContext(ctx, []api.ContextMessage{{Role: api.RoleUser, Content: prompt}}, opts)
}

// CompleteWithContext replays the next scripted response for the
// requested model. The final message is treated as the prompt.
func (p *Provider) CompleteWithContext(_ context.Context, messages []api.ContextMessage, opts *provider.Options) (string, error) {
	if len(messages) == 0 {
		return "", api.NewInvalidRequestError("messages", "messages must not be empty")
	}

	model := ""
	if opts != nil {
		model = opts.Model
	}
	prompt := messages[len(messages)-1].Content

	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, Call{
		Model:    model,
		Prompt:   prompt,
		Messages: append([]api.ContextMessage(nil), messages...),
		Options:  opts,
	})

	if err, ok := p.errs[model]; ok {
		return "", err
	}

	queue := p.responses[model]
	if len(queue) == 0 {
		return fmt.Sprintf("[%s] %s", model, prompt), nil
	}

	resp := queue[0]
	if len(queue) > 1 {
		p.responses[model] = queue[1:]
	}
	return resp, nil
}

// ListModels returns the scripted model IDs.
func (p *Provider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	models := make([]provider.ModelInfo, 0, len(p.responses))
	for id := range p.responses {
		models = append(models, provider.ModelInfo{ID: id, Object: "model"})
	}
	return models, nil
}

// Close is a no-op.
func (p *Provider) Close() error { return nil }

package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/storage"
)

// orchestrateInput is the typed input of the orchestrate tool.
type orchestrateInput struct {
	Prompt           string   `json:"prompt" jsonschema:"required,The prompt to orchestrate across models"`
	Strategy         string   `json:"strategy" jsonschema:"required,Orchestration strategy: sequential parallel debate consensus or specialist"`
	Models           []string `json:"models,omitempty" jsonschema:"Models to use (empty = default selection)"`
	MaxRounds        int      `json:"max_rounds,omitempty" jsonschema:"Debate rounds (default: 3)"`
	Temperature      *float64 `json:"temperature,omitempty" jsonschema:"Sampling temperature for per-model calls (0-2)"`
	IncludeReasoning bool     `json:"include_reasoning,omitempty" jsonschema:"Ask the backend for reasoning tokens"`
	UseContext       *bool    `json:"use_context,omitempty" jsonschema:"Read and write conversation context (default: true)"`
	ConversationID   string   `json:"conversation_id,omitempty" jsonschema:"Conversation to continue (empty = start a new one)"`
}

// orchestrateOutput is the structured result of the orchestrate tool.
type orchestrateOutput struct {
	Strategy       string              `json:"strategy" jsonschema:"Strategy that was executed"`
	Models         []string            `json:"models" jsonschema:"Models that participated"`
	Responses      []modelResponse     `json:"responses,omitempty" jsonschema:"Per-model responses"`
	Failures       []modelFailure      `json:"failures,omitempty" jsonschema:"Models that failed with their reasons"`
	Rounds         []debateRound       `json:"rounds,omitempty" jsonschema:"Debate transcript by round"`
	Synthesis      string              `json:"synthesis,omitempty" jsonschema:"Merged answer (parallel and consensus)"`
	Consensus      string              `json:"consensus,omitempty" jsonschema:"Consensus statement"`
	Conclusion     string              `json:"conclusion,omitempty" jsonschema:"Debate conclusion"`
	Routing        *routingInfo        `json:"routing,omitempty" jsonschema:"Specialist routing decision"`
	ConversationID string              `json:"conversation_id,omitempty" jsonschema:"Conversation the exchange was recorded in"`
}

type modelResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

type modelFailure struct {
	Model  string `json:"model"`
	Reason string `json:"reason"`
}

type debateRound struct {
	Round     int             `json:"round"`
	Responses []modelResponse `json:"responses"`
}

type routingInfo struct {
	Primary    string            `json:"primary"`
	Secondary  string            `json:"secondary"`
	Complexity string            `json:"complexity"`
	Fallback   bool              `json:"fallback"`
	Reasons    map[string]string `json:"reasons,omitempty"`
}

// historyInput is the typed input of the context_history tool.
type historyInput struct {
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"Conversation to read (empty = most recent)"`
	Limit          int    `json:"limit,omitempty" jsonschema:"Maximum messages to return (default: 50)"`
}

type historyOutput struct {
	ConversationID string           `json:"conversation_id"`
	Messages       []historyMessage `json:"messages"`
}

type historyMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Model     string `json:"model,omitempty"`
	CreatedAt string `json:"created_at"`
}

// summaryOutput is the structured result of the context_summary tool.
type summaryOutput struct {
	TotalConversations   int          `json:"total_conversations"`
	TotalMessages        int          `json:"total_messages"`
	ModelUsage           []modelUsage `json:"model_usage,omitempty"`
	LatestConversationID string       `json:"latest_conversation_id,omitempty"`
}

type modelUsage struct {
	Model string `json:"model"`
	Count int    `json:"count"`
}

// newConversationInput is the typed input of the new_conversation tool.
type newConversationInput struct {
	Title string `json:"title,omitempty" jsonschema:"Optional conversation title"`
}

type newConversationOutput struct {
	ConversationID string `json:"conversation_id"`
}

type listModelsOutput struct {
	Models []string `json:"models"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "orchestrate",
		Description: "Send a prompt to multiple AI models using an orchestration strategy (sequential, parallel, debate, consensus, or specialist) and return the combined result.",
	}, s.handleOrchestrate)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context_history",
		Description: "Return the message history of a conversation, oldest first. Without a conversation_id the most recently used conversation is read.",
	}, s.handleHistory)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context_summary",
		Description: "Return store-wide conversation statistics: totals, per-model usage, and the most recent conversation.",
	}, s.handleSummary)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "new_conversation",
		Description: "Start a fresh conversation and return its ID for use in subsequent orchestrate calls.",
	}, s.handleNewConversation)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_models",
		Description: "List the model IDs available from the completion backend.",
	}, s.handleListModels)
}

func (s *Server) handleOrchestrate(ctx context.Context, _ *mcp.CallToolRequest, input orchestrateInput) (*mcp.CallToolResult, orchestrateOutput, error) {
	req := &api.OrchestrationRequest{
		Prompt:   input.Prompt,
		Strategy: api.Strategy(input.Strategy),
		Models:   input.Models,
		Options: api.OrchestrationOptions{
			MaxRounds:        input.MaxRounds,
			Temperature:      input.Temperature,
			IncludeReasoning: input.IncludeReasoning,
		},
		UseContext:     input.UseContext,
		ConversationID: input.ConversationID,
	}

	result, err := s.engine.Orchestrate(ctx, req)
	if err != nil {
		return nil, orchestrateOutput{}, err
	}

	output := toOrchestrateOutput(result)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: renderResult(result)},
		},
	}, output, nil
}

func (s *Server) handleHistory(ctx context.Context, _ *mcp.CallToolRequest, input historyInput) (*mcp.CallToolResult, historyOutput, error) {
	if s.store == nil {
		return nil, historyOutput{}, fmt.Errorf("no context store configured")
	}

	convID := input.ConversationID
	if convID == "" {
		sum, err := s.store.Summary(ctx)
		if err != nil {
			return nil, historyOutput{}, err
		}
		if sum.LatestConversationID == "" {
			return nil, historyOutput{}, fmt.Errorf("no conversations recorded yet")
		}
		convID = sum.LatestConversationID
	}

	msgs, err := s.store.History(ctx, convID, input.Limit)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, historyOutput{}, fmt.Errorf("conversation %s not found", convID)
		}
		return nil, historyOutput{}, err
	}

	output := historyOutput{ConversationID: convID}
	for _, m := range msgs {
		output.Messages = append(output.Messages, historyMessage{
			Role:      string(m.Role),
			Content:   m.Content,
			Model:     m.Model,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: renderHistory(convID, msgs)},
		},
	}, output, nil
}

func (s *Server) handleSummary(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, summaryOutput, error) {
	if s.store == nil {
		return nil, summaryOutput{}, fmt.Errorf("no context store configured")
	}

	sum, err := s.store.Summary(ctx)
	if err != nil {
		return nil, summaryOutput{}, err
	}

	output := summaryOutput{
		TotalConversations:   sum.TotalConversations,
		TotalMessages:        sum.TotalMessages,
		LatestConversationID: sum.LatestConversationID,
	}
	for _, u := range sum.ModelUsage {
		output.ModelUsage = append(output.ModelUsage, modelUsage{Model: u.Model, Count: u.Count})
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: renderSummary(sum)},
		},
	}, output, nil
}

func (s *Server) handleNewConversation(ctx context.Context, _ *mcp.CallToolRequest, input newConversationInput) (*mcp.CallToolResult, newConversationOutput, error) {
	if s.store == nil {
		return nil, newConversationOutput{}, fmt.Errorf("no context store configured")
	}

	id, err := s.store.StartConversation(ctx, input.Title)
	if err != nil {
		return nil, newConversationOutput{}, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Started conversation %s", id)},
		},
	}, newConversationOutput{ConversationID: id}, nil
}

func (s *Server) handleListModels(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, listModelsOutput, error) {
	models, err := s.provider.ListModels(ctx)
	if err != nil {
		return nil, listModelsOutput{}, err
	}

	output := listModelsOutput{}
	for _, m := range models {
		output.Models = append(output.Models, m.ID)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: renderModels(output.Models)},
		},
	}, output, nil
}

// toOrchestrateOutput flattens the engine result into the tool's wire
// shape.
func toOrchestrateOutput(result *api.OrchestrationResult) orchestrateOutput {
	out := orchestrateOutput{
		Strategy:       string(result.Strategy),
		Models:         result.Models,
		Synthesis:      result.Synthesis,
		Consensus:      result.Consensus,
		Conclusion:     result.Conclusion,
		ConversationID: result.ConversationID,
	}

	for _, r := range result.Responses {
		out.Responses = append(out.Responses, modelResponse{Model: r.Model, Response: r.Response})
	}
	for _, f := range result.Failures {
		out.Failures = append(out.Failures, modelFailure{Model: f.Model, Reason: f.Reason})
	}
	for _, round := range result.Rounds {
		entry := debateRound{Round: round.Round}
		for _, r := range round.Responses {
			entry.Responses = append(entry.Responses, modelResponse{Model: r.Model, Response: r.Response})
		}
		out.Rounds = append(out.Rounds, entry)
	}
	if result.Routing != nil {
		out.Routing = &routingInfo{
			Primary:    result.Routing.Primary,
			Secondary:  result.Routing.Secondary,
			Complexity: result.Routing.Complexity,
			Fallback:   result.Routing.Fallback,
			Reasons:    result.Routing.Reasons,
		}
	}

	return out
}

package storage

import (
	"context"
	"time"

	"github.com/ensembled/ensemble/pkg/api"
)

// DefaultHistoryLimit is the number of messages History returns when the
// caller passes a non-positive limit.
const DefaultHistoryLimit = 50

// Message is a persisted conversation message. It is a superset of
// api.ContextMessage with identity, attribution, and timing.
type Message struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Role           api.Role          `json:"role"`
	Content        string            `json:"content"`
	Model          string            `json:"model,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// AddMessageParams describes one append. An empty ConversationID
// auto-creates a new conversation; the created ID is reported on the
// returned Message.
type AddMessageParams struct {
	ConversationID string
	Role           api.Role
	Content        string
	Model          string
	Metadata       map[string]string
}

// ModelUsage counts messages attributed to one model.
type ModelUsage struct {
	Model string `json:"model"`
	Count int    `json:"count"`
}

// Summary aggregates store-wide statistics.
type Summary struct {
	TotalConversations int `json:"total_conversations"`
	TotalMessages      int `json:"total_messages"`

	// ModelUsage is ordered by descending count.
	ModelUsage []ModelUsage `json:"model_usage"`

	// LatestConversationID is the most recently written-to conversation,
	// or empty when the store is empty.
	LatestConversationID string `json:"latest_conversation_id,omitempty"`
}

// Store is the durable conversation log consumed by the engine and the
// tool-invocation layer. Implementations must scope all operations by the
// tenant present in the context (empty tenant means single-tenant mode)
// and must be safe for concurrent use.
type Store interface {
	// StartConversation creates a new conversation and returns its ID.
	StartConversation(ctx context.Context, title string) (string, error)

	// AddMessage appends a message. An empty ConversationID creates a
	// conversation first. Returns the persisted message.
	AddMessage(ctx context.Context, params AddMessageParams) (*Message, error)

	// History returns up to limit messages of a conversation, oldest
	// first. A non-positive limit means DefaultHistoryLimit. Returns
	// ErrNotFound for an unknown conversation.
	History(ctx context.Context, conversationID string, limit int) ([]Message, error)

	// Summary returns store-wide statistics for the current tenant.
	Summary(ctx context.Context) (*Summary, error)

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases database connections and resources.
	Close() error
}

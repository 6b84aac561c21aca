// Package postgres provides a PostgreSQL implementation of storage.Store.
// It uses pgx/v5 for connection pooling and JSONB for message metadata.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/storage"
)

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// StartConversation creates a new conversation and returns its ID.
func (s *Store) StartConversation(ctx context.Context, title string) (string, error) {
	id := api.NewConversationID()
	tenantID := storage.GetTenant(ctx)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (id, tenant_id, title) VALUES ($1, $2, $3)
	`, id, tenantID, title)
	if err != nil {
		if isDuplicateKey(err) {
			return "", storage.ErrConflict
		}
		return "", fmt.Errorf("inserting conversation: %w", err)
	}

	return id, nil
}

// AddMessage appends a message, creating a conversation first when the
// params carry no conversation ID. The insert and the conversation
// timestamp bump run in one transaction.
func (s *Store) AddMessage(ctx context.Context, params storage.AddMessageParams) (*storage.Message, error) {
	tenantID := storage.GetTenant(ctx)

	var metadataJSON []byte
	if params.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(params.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshaling metadata: %w", err)
		}
	}

	msg := &storage.Message{
		ID:             api.NewMessageID(),
		ConversationID: params.ConversationID,
		Role:           params.Role,
		Content:        params.Content,
		Model:          params.Model,
		Metadata:       params.Metadata,
		CreatedAt:      time.Now().UTC(),
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if msg.ConversationID == "" {
			msg.ConversationID = api.NewConversationID()
			if _, err := tx.Exec(ctx, `
				INSERT INTO conversations (id, tenant_id, title) VALUES ($1, $2, '')
			`, msg.ConversationID, tenantID); err != nil {
				return fmt.Errorf("inserting conversation: %w", err)
			}
		} else {
			// Verify the conversation exists within the tenant scope.
			var exists bool
			if err := tx.QueryRow(ctx, `
				SELECT EXISTS(
					SELECT 1 FROM conversations
					WHERE id = $1 AND ($2 = '' OR tenant_id = $2)
				)
			`, msg.ConversationID, tenantID).Scan(&exists); err != nil {
				return fmt.Errorf("checking conversation: %w", err)
			}
			if !exists {
				return storage.ErrNotFound
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO messages (id, conversation_id, role, content, model, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, msg.ID, msg.ConversationID, string(msg.Role), msg.Content, msg.Model,
			nullJSON(metadataJSON), msg.CreatedAt); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE conversations SET updated_at = now() WHERE id = $1
		`, msg.ConversationID); err != nil {
			return fmt.Errorf("updating conversation: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return msg, nil
}

// History returns up to limit messages of a conversation, oldest first.
// When a conversation holds more than limit messages, the most recent
// limit messages are returned.
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]storage.Message, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}
	tenantID := storage.GetTenant(ctx)

	var exists bool
	if err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM conversations
			WHERE id = $1 AND ($2 = '' OR tenant_id = $2)
		)
	`, conversationID, tenantID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking conversation: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Select the newest `limit` rows, then reverse to oldest-first.
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, model, metadata, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []storage.Message
	for rows.Next() {
		var (
			m            storage.Message
			role         string
			metadataJSON []byte
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &m.Model,
			&metadataJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = api.Role(role)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}

	// Reverse to chronological order (oldest first).
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}

// Summary returns store-wide statistics for the current tenant.
func (s *Store) Summary(ctx context.Context) (*storage.Summary, error) {
	tenantID := storage.GetTenant(ctx)
	sum := &storage.Summary{}

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM conversations WHERE $1 = '' OR tenant_id = $1),
			(SELECT count(*) FROM messages m
				JOIN conversations c ON c.id = m.conversation_id
				WHERE $1 = '' OR c.tenant_id = $1)
	`, tenantID).Scan(&sum.TotalConversations, &sum.TotalMessages)
	if err != nil {
		return nil, fmt.Errorf("querying totals: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT m.model, count(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.model <> '' AND ($1 = '' OR c.tenant_id = $1)
		GROUP BY m.model
		ORDER BY count(*) DESC, m.model ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying model usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u storage.ModelUsage
		if err := rows.Scan(&u.Model, &u.Count); err != nil {
			return nil, fmt.Errorf("scanning model usage: %w", err)
		}
		sum.ModelUsage = append(sum.ModelUsage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading model usage: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT id FROM conversations
		WHERE $1 = '' OR tenant_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, tenantID).Scan(&sum.LatestConversationID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("querying latest conversation: %w", err)
	}

	return sum, nil
}

// HealthCheck verifies database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// nullJSON returns nil for empty JSON so the column stores SQL NULL.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// isDuplicateKey reports whether err is a unique-constraint violation.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

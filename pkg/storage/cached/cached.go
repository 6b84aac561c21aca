// Package cached decorates a storage.Store with a read-through history
// cache. History reads hit the cache first; appends write through to the
// underlying store and update the cached tail, so repeated history
// injection during a single orchestration avoids round trips to the
// durable backend.
package cached

import (
	"context"
	"sync"

	"github.com/ensembled/ensemble/pkg/storage"
)

// cacheEntry holds the cached message tail of one conversation.
type cacheEntry struct {
	// messages is the full known tail, oldest first. complete is true
	// when the entry holds the entire conversation (safe to serve any
	// limit ≤ len(messages) plus larger ones).
	messages []storage.Message
	complete bool
	tenantID string
}

// Store wraps an inner storage.Store with an in-process history cache.
type Store struct {
	inner storage.Store

	mu      sync.Mutex
	entries map[string]*cacheEntry
	maxConv int
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New wraps inner with a read-through cache holding at most maxConversations
// conversation tails (0 means 256).
func New(inner storage.Store, maxConversations int) *Store {
	if maxConversations <= 0 {
		maxConversations = 256
	}
	return &Store{
		inner:   inner,
		entries: make(map[string]*cacheEntry),
		maxConv: maxConversations,
	}
}

// StartConversation delegates to the inner store.
func (s *Store) StartConversation(ctx context.Context, title string) (string, error) {
	id, err := s.inner.StartConversation(ctx, title)
	if err != nil {
		return "", err
	}

	// A fresh conversation has a known-empty, complete history.
	s.mu.Lock()
	s.put(id, &cacheEntry{complete: true, tenantID: storage.GetTenant(ctx)})
	s.mu.Unlock()

	return id, nil
}

// AddMessage writes through to the inner store and appends to the cached
// tail when present.
func (s *Store) AddMessage(ctx context.Context, params storage.AddMessageParams) (*storage.Message, error) {
	msg, err := s.inner.AddMessage(ctx, params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if e, ok := s.entries[msg.ConversationID]; ok {
		e.messages = append(e.messages, *msg)
	}
	s.mu.Unlock()

	return msg, nil
}

// History serves from the cache when the cached entry is complete,
// falling back to the inner store and populating the cache on a miss.
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]storage.Message, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}
	tenantID := storage.GetTenant(ctx)

	s.mu.Lock()
	if e, ok := s.entries[conversationID]; ok && e.complete && e.tenantID == tenantID {
		msgs := e.messages
		if len(msgs) > limit {
			msgs = msgs[len(msgs)-limit:]
		}
		out := make([]storage.Message, len(msgs))
		copy(out, msgs)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	// Miss: read through, fetching at least the default window so the
	// entry can serve later default-limit reads. The caller's limit wins
	// when it is larger.
	fetch := limit
	if fetch < storage.DefaultHistoryLimit {
		fetch = storage.DefaultHistoryLimit
	}
	msgs, err := s.inner.History(ctx, conversationID, fetch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.put(conversationID, &cacheEntry{
		messages: append([]storage.Message(nil), msgs...),
		complete: len(msgs) < fetch,
		tenantID: tenantID,
	})
	s.mu.Unlock()

	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Summary delegates to the inner store; aggregates are not cached.
func (s *Store) Summary(ctx context.Context) (*storage.Summary, error) {
	return s.inner.Summary(ctx)
}

// HealthCheck delegates to the inner store.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.inner.HealthCheck(ctx)
}

// Close delegates to the inner store.
func (s *Store) Close() error {
	return s.inner.Close()
}

// put inserts a cache entry, evicting an arbitrary entry at capacity.
// Caller holds s.mu.
func (s *Store) put(id string, e *cacheEntry) {
	if len(s.entries) >= s.maxConv {
		for k := range s.entries {
			delete(s.entries, k)
			break
		}
	}
	s.entries[id] = e
}

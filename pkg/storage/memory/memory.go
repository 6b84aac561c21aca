// Package memory provides an in-memory implementation of storage.Store
// for testing and lightweight deployments. Conversations are lost when
// the process restarts. Optional eviction caps the conversation count.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/storage"
)

// conversation holds one conversation and its message log.
type conversation struct {
	id       string
	tenantID string
	title    string
	messages []storage.Message
	lruElem  *list.Element // position in LRU list
}

// Store is an in-memory storage.Store with optional LRU eviction.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	lruList       *list.List // front = most recently written
	maxSize       int        // 0 = unlimited

	// latest maps tenant ID to the most recently written conversation.
	latest map[string]string
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the least recently written conversation
// is evicted when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		conversations: make(map[string]*conversation),
		lruList:       list.New(),
		maxSize:       maxSize,
		latest:        make(map[string]string),
	}
}

// StartConversation creates a new conversation and returns its ID.
func (s *Store) StartConversation(ctx context.Context, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(storage.GetTenant(ctx), title), nil
}

// startLocked creates a conversation. Caller holds s.mu.
func (s *Store) startLocked(tenantID, title string) string {
	if s.maxSize > 0 && len(s.conversations) >= s.maxSize {
		s.evictOldest()
	}

	id := api.NewConversationID()
	conv := &conversation{
		id:       id,
		tenantID: tenantID,
		title:    title,
	}
	conv.lruElem = s.lruList.PushFront(id)
	s.conversations[id] = conv
	s.latest[tenantID] = id
	return id
}

// AddMessage appends a message, creating a conversation when the params
// carry no conversation ID.
func (s *Store) AddMessage(ctx context.Context, params storage.AddMessageParams) (*storage.Message, error) {
	tenantID := storage.GetTenant(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	convID := params.ConversationID
	if convID == "" {
		convID = s.startLocked(tenantID, "")
	}

	conv, ok := s.conversations[convID]
	if !ok || (tenantID != "" && conv.tenantID != tenantID) {
		return nil, storage.ErrNotFound
	}

	msg := storage.Message{
		ID:             api.NewMessageID(),
		ConversationID: convID,
		Role:           params.Role,
		Content:        params.Content,
		Model:          params.Model,
		Metadata:       params.Metadata,
		CreatedAt:      time.Now().UTC(),
	}
	conv.messages = append(conv.messages, msg)

	s.lruList.MoveToFront(conv.lruElem)
	s.latest[tenantID] = convID

	return &msg, nil
}

// History returns up to limit messages, oldest first.
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]storage.Message, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}
	tenantID := storage.GetTenant(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || (tenantID != "" && conv.tenantID != tenantID) {
		return nil, storage.ErrNotFound
	}

	msgs := conv.messages
	if len(msgs) > limit {
		// Keep the most recent messages, still oldest first.
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]storage.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Summary returns store-wide statistics for the current tenant.
func (s *Store) Summary(ctx context.Context) (*storage.Summary, error) {
	tenantID := storage.GetTenant(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := &storage.Summary{
		LatestConversationID: s.latest[tenantID],
	}

	usage := make(map[string]int)
	for _, conv := range s.conversations {
		if tenantID != "" && conv.tenantID != tenantID {
			continue
		}
		sum.TotalConversations++
		sum.TotalMessages += len(conv.messages)
		for _, m := range conv.messages {
			if m.Model != "" {
				usage[m.Model]++
			}
		}
	}

	for model, count := range usage {
		sum.ModelUsage = append(sum.ModelUsage, storage.ModelUsage{Model: model, Count: count})
	}
	sort.Slice(sum.ModelUsage, func(i, j int) bool {
		if sum.ModelUsage[i].Count != sum.ModelUsage[j].Count {
			return sum.ModelUsage[i].Count > sum.ModelUsage[j].Count
		}
		return sum.ModelUsage[i].Model < sum.ModelUsage[j].Model
	})

	return sum, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// evictOldest removes the least recently written conversation.
// Caller holds s.mu.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	if conv, ok := s.conversations[id]; ok {
		if s.latest[conv.tenantID] == id {
			delete(s.latest, conv.tenantID)
		}
		delete(s.conversations, id)
	}
	s.lruList.Remove(back)
}

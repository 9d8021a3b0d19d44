package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hykang/chorus/types"
)

// MemoryStore is an in-memory Store implementation. Suitable for
// development and testing; data is lost on restart.
type MemoryStore struct {
	conversations map[string]*types.Conversation
	mu            sync.RWMutex
	closed        bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*types.Conversation),
	}
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping checks if the store is healthy.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Get returns a deep-enough copy of the conversation so that callers
// never observe later appends through shared slices.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConversation(conv), nil
}

// Create persists a new conversation.
func (s *MemoryStore) Create(ctx context.Context, conv *types.Conversation) error {
	if conv == nil || conv.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, exists := s.conversations[conv.ID]; exists {
		return ErrAlreadyExists
	}
	now := time.Now()
	cp := copyConversation(conv)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = now
	}
	s.conversations[conv.ID] = cp
	return nil
}

// AppendMessage appends one message to the conversation log.
func (s *MemoryStore) AppendMessage(ctx context.Context, id string, msg types.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now()
	return nil
}

// AppendConfigSnapshot appends one config snapshot.
func (s *MemoryStore) AppendConfigSnapshot(ctx context.Context, id string, snap types.ConfigSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.ConfigHistory = append(conv.ConfigHistory, snap)
	conv.CurrentConfigVersion = snap.Version
	conv.UpdatedAt = time.Now()
	return nil
}

// Touch bumps UpdatedAt.
func (s *MemoryStore) Touch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.UpdatedAt = time.Now()
	return nil
}

// Delete removes the conversation.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

func copyConversation(conv *types.Conversation) *types.Conversation {
	cp := *conv
	cp.ConfigHistory = append([]types.ConfigSnapshot(nil), conv.ConfigHistory...)
	cp.Messages = append([]types.StoredMessage(nil), conv.Messages...)
	return &cp
}

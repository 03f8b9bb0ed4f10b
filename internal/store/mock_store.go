// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation // keyed by conversation ID
	messages      map[string]*Message      // keyed by message ID
	byConv        map[string][]string      // conversation ID -> message IDs

	// FailPing makes Ping return an error when set.
	FailPing error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string]*Message),
		byConv:        make(map[string][]string),
	}
}

// CreateConversation stores a new conversation.
func (m *MockStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[conv.ID]; exists {
		return ErrConversationExists
	}

	// Copy to avoid external modification
	c := *conv
	m.conversations[c.ID] = &c
	return nil
}

// GetConversation retrieves a conversation by ID.
func (m *MockStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}

	c := *conv
	return &c, nil
}

// ConversationExists reports whether a conversation exists.
func (m *MockStore) ConversationExists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.conversations[id]
	return ok, nil
}

// CloseConversation marks a conversation CLOSED.
func (m *MockStore) CloseConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}

	conv.Status = StatusClosed
	return nil
}

// ListConversations returns conversations ordered by most recent activity.
func (m *MockStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		c := *conv
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			if !a.LastMessageAt.Equal(*b.LastMessageAt) {
				return a.LastMessageAt.After(*b.LastMessageAt)
			}
		case a.LastMessageAt != nil:
			return true
		case b.LastMessageAt != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	return result, nil
}

// DeleteConversation removes a conversation without messages.
func (m *MockStore) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.byConv[id]) > 0 {
		return ErrConversationHasMessages
	}
	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}

	delete(m.conversations, id)
	return nil
}

// CreateMessage stores a message and bumps last_message_at, mirroring the
// transactional behavior of the SQLite implementation.
func (m *MockStore) CreateMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[msg.ConversationID]
	if !ok {
		return ErrNotFound
	}
	if conv.Status == StatusClosed {
		return ErrConversationClosed
	}
	if _, exists := m.messages[msg.ID]; exists {
		return ErrMessageExists
	}

	mm := *msg
	m.messages[mm.ID] = &mm
	m.byConv[mm.ConversationID] = append(m.byConv[mm.ConversationID], mm.ID)

	ts := mm.Timestamp
	conv.LastMessageAt = &ts
	return nil
}

// GetMessage retrieves a message by ID.
func (m *MockStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}

	mm := *msg
	return &mm, nil
}

// MessageExists reports whether a message exists.
func (m *MockStore) MessageExists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.messages[id]
	return ok, nil
}

// GetMessages returns a conversation's messages ordered by timestamp.
func (m *MockStore) GetMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byConv[conversationID]
	result := make([]*Message, 0, len(ids))
	for _, id := range ids {
		mm := *m.messages[id]
		result = append(result, &mm)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// Ping returns FailPing, which is nil unless a test sets it.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.FailPing
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error {
	return nil
}

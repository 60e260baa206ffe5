package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps records in process memory. Values are stored encoded,
// so callers never share maps with the store.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[string][]byte
	conversations map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string][]byte),
		conversations: make(map[string][]byte),
	}
}

func (m *MemoryStore) LoadUser(_ context.Context, userID string) (*UserRecord, error) {
	if userID == "" {
		return nil, ErrEmptyKey
	}
	m.mu.Lock()
	raw := m.users[userID]
	m.mu.Unlock()

	rec, err := decodeUser(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", userID, err)
	}
	return rec, nil
}

func (m *MemoryStore) SaveUser(_ context.Context, userID string, rec *UserRecord) error {
	if userID == "" {
		return ErrEmptyKey
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode user %s: %w", userID, err)
	}
	m.mu.Lock()
	m.users[userID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, userID string, fn func(*UserRecord) error) error {
	if userID == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := decodeUser(m.users[userID])
	if err != nil {
		return fmt.Errorf("failed to decode user %s: %w", userID, err)
	}
	if err := fn(rec); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode user %s: %w", userID, err)
	}
	m.users[userID] = raw
	return nil
}

func (m *MemoryStore) LoadConversation(_ context.Context, conversationID string) (Data, error) {
	if conversationID == "" {
		return nil, ErrEmptyKey
	}
	m.mu.Lock()
	raw := m.conversations[conversationID]
	m.mu.Unlock()

	data, err := decodeData(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", conversationID, err)
	}
	return data, nil
}

func (m *MemoryStore) SaveConversation(_ context.Context, conversationID string, data Data) error {
	if conversationID == "" {
		return ErrEmptyKey
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode conversation %s: %w", conversationID, err)
	}
	m.mu.Lock()
	m.conversations[conversationID] = raw
	m.mu.Unlock()
	return nil
}

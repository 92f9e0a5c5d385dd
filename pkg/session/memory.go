package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps sessions in memory. Values are stored encoded so callers
// never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	raw, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	s, err := decode(raw)
	if err != nil || s.IsExpired() {
		return nil, err
	}
	return s, nil
}

func (m *MemoryStore) Set(ctx context.Context, s *Session) error {
	raw, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[s.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	var out []*Session
	for _, id := range ids {
		s, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, raw := range m.data {
		if s, err := decode(raw); err != nil || s.IsExpired() {
			delete(m.data, id)
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

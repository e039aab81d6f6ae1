package session

import "sync"

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Init() error { return nil }

func (m *MemoryStore) Read() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, nil
	}
	s := *m.current
	return &s, nil
}

func (m *MemoryStore) Write(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. State does not survive restarts.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (m *MemoryStore) Set(_ context.Context, userID int64, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st == Idle {
		delete(m.states, userID)
		return nil
	}
	m.states[userID] = st
	return nil
}

func (m *MemoryStore) Take(_ context.Context, userID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.states[userID]
	delete(m.states, userID)
	return st, nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

// Peek returns the current state without clearing it.
func (m *MemoryStore) Peek(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID]
}

package cursor

import (
	"context"
	"sync"
	"time"
)

// MockStore is a hand-written, in-memory Store used in unit tests.
type MockStore struct {
	mu      sync.Mutex
	cursors map[SyncType]time.Time

	// Optional error overrides, set in tests to simulate failure paths.
	GetErr     error
	AdvanceErr error
}

func NewMockStore() *MockStore {
	return &MockStore{cursors: make(map[SyncType]time.Time)}
}

func (m *MockStore) Get(_ context.Context, t SyncType) (Cursor, error) {
	if m.GetErr != nil {
		return Cursor{}, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.cursors[t]
	if !ok {
		return Cursor{SyncType: t}, nil
	}
	clone := last
	return Cursor{SyncType: t, LastSyncTime: &clone}, nil
}

func (m *MockStore) Advance(_ context.Context, t SyncType, newTime time.Time) error {
	if m.AdvanceErr != nil {
		return m.AdvanceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[t] = newTime
	return nil
}

// Set seeds a cursor value directly, bypassing Advance error overrides.
func (m *MockStore) Set(t SyncType, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[t] = at
}

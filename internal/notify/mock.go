package notify

import (
	"context"
	"sync"

	"github.com/eprhub/prn-integration/internal/domain"
)

// MockDispatcher records every dispatch for assertion in unit tests.
type MockDispatcher struct {
	mu            sync.Mutex
	notifications []domain.ProducerNotification
	alerts        []string

	SendErr  error
	AlertErr error
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) SendProducerNotifications(_ context.Context, notifications []domain.ProducerNotification) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notifications...)
	return nil
}

func (m *MockDispatcher) AlertOperators(_ context.Context, message string) error {
	if m.AlertErr != nil {
		return m.AlertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, message)
	return nil
}

func (m *MockDispatcher) Notifications() []domain.ProducerNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ProducerNotification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

func (m *MockDispatcher) Alerts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.alerts))
	copy(out, m.alerts)
	return out
}

var _ Dispatcher = (*MockDispatcher)(nil)

package backend

import (
	"context"
	"sync"
	"time"

	"github.com/eprhub/prn-integration/internal/domain"
)

// MockPrnService is a hand-written, in-memory PrnService used in unit
// tests. Saved requests are recorded in order; SaveErrs lets a test fail
// the nth save call.
type MockPrnService struct {
	mu    sync.Mutex
	saved []domain.SavePrnRequest
	calls int

	// SaveErrs[i] is returned by the (i+1)th SavePrn call; nil entries
	// and calls past the end succeed.
	SaveErrs []error

	UpdatedProducers    []domain.UpdatedProducer
	UpdatedProducersErr error

	// Windows records the (from, to) pair of each GetUpdatedProducers call.
	Windows []domain.FetchWindow
}

func NewMockPrnService() *MockPrnService {
	return &MockPrnService{}
}

func (m *MockPrnService) SavePrn(_ context.Context, req domain.SavePrnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.calls
	m.calls++
	if call < len(m.SaveErrs) && m.SaveErrs[call] != nil {
		return m.SaveErrs[call]
	}
	m.saved = append(m.saved, req)
	return nil
}

func (m *MockPrnService) GetUpdatedProducers(_ context.Context, from *time.Time, to time.Time) ([]domain.UpdatedProducer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Windows = append(m.Windows, domain.FetchWindow{From: from, To: to})
	if m.UpdatedProducersErr != nil {
		return nil, m.UpdatedProducersErr
	}
	return m.UpdatedProducers, nil
}

// Saved returns a copy of all successfully saved requests.
func (m *MockPrnService) Saved() []domain.SavePrnRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SavePrnRequest, len(m.saved))
	copy(out, m.saved)
	return out
}

// SaveCalls returns the total number of SavePrn invocations.
func (m *MockPrnService) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockOrganisationService returns a fixed contact list per organisation.
type MockOrganisationService struct {
	Emails map[string][]domain.PersonEmail
	Err    error
}

func NewMockOrganisationService() *MockOrganisationService {
	return &MockOrganisationService{Emails: make(map[string][]domain.PersonEmail)}
}

func (m *MockOrganisationService) GetPersonEmails(_ context.Context, organisationID string) ([]domain.PersonEmail, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	emails, ok := m.Emails[organisationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return emails, nil
}

var (
	_ PrnService          = (*MockPrnService)(nil)
	_ OrganisationService = (*MockOrganisationService)(nil)
)

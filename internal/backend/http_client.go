package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/eprhub/prn-integration/internal/domain"
)

// HTTPPrnService is the PrnService implementation over the backend's REST
// API. Base URL and timeout are injected so tests can point at a local
// mock server.
type HTTPPrnService struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPPrnService(baseURL string, timeout time.Duration) *HTTPPrnService {
	return &HTTPPrnService{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPPrnService) SavePrn(ctx context.Context, r domain.SavePrnRequest) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal save request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/api/v1/prns", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("save prn %s: %w", r.EvidenceNo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("save prn %s: status %d", r.EvidenceNo, resp.StatusCode)
	}
	return nil
}

func (s *HTTPPrnService) GetUpdatedProducers(ctx context.Context, from *time.Time, to time.Time) ([]domain.UpdatedProducer, error) {
	q := url.Values{}
	if from != nil {
		q.Set("from", from.UTC().Format(time.RFC3339))
	}
	q.Set("to", to.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/api/v1/producers/updated?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get updated producers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get updated producers: status %d", resp.StatusCode)
	}

	var producers []domain.UpdatedProducer
	if err := json.NewDecoder(resp.Body).Decode(&producers); err != nil {
		return nil, fmt.Errorf("decode updated producers: %w", err)
	}
	return producers, nil
}

// HTTPOrganisationService resolves organisation contacts through the
// accounts backend.
type HTTPOrganisationService struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPOrganisationService(baseURL string, timeout time.Duration) *HTTPOrganisationService {
	return &HTTPOrganisationService{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPOrganisationService) GetPersonEmails(ctx context.Context, organisationID string) ([]domain.PersonEmail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/api/v1/organisations/"+url.PathEscape(organisationID)+"/person-emails", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get person emails for %s: %w", organisationID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get person emails for %s: status %d", organisationID, resp.StatusCode)
	}

	var emails []domain.PersonEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return nil, fmt.Errorf("decode person emails: %w", err)
	}
	return emails, nil
}

var (
	_ PrnService          = (*HTTPPrnService)(nil)
	_ OrganisationService = (*HTTPOrganisationService)(nil)
)

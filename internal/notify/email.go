package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/eprhub/prn-integration/internal/domain"
)

// EmailDispatcher delivers through the email gateway's REST API. The PRN
// and PERN (export) variants use separate templates; which one applies is
// decided per notification from the evidence number prefix.
type EmailDispatcher struct {
	baseURL         string
	apiKey          string
	prnTemplateID   string
	pernTemplateID  string
	operatorAddress string
	httpClient      *http.Client
}

func NewEmailDispatcher(baseURL, apiKey, prnTemplateID, pernTemplateID, operatorAddress string, timeout time.Duration) *EmailDispatcher {
	return &EmailDispatcher{
		baseURL:         baseURL,
		apiKey:          apiKey,
		prnTemplateID:   prnTemplateID,
		pernTemplateID:  pernTemplateID,
		operatorAddress: operatorAddress,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

type emailRequest struct {
	To         string            `json:"to"`
	TemplateID string            `json:"templateId"`
	Fields     map[string]string `json:"personalisation"`
}

func (d *EmailDispatcher) SendProducerNotifications(ctx context.Context, notifications []domain.ProducerNotification) error {
	for _, n := range notifications {
		templateID := d.prnTemplateID
		if n.IsExport {
			templateID = d.pernTemplateID
		}
		req := emailRequest{
			To:         n.Email,
			TemplateID: templateID,
			Fields: map[string]string{
				"firstName":         n.FirstName,
				"lastName":          n.LastName,
				"prnNumber":         n.PrnNumber,
				"material":          n.Material,
				"tonnage":           fmt.Sprintf("%d", n.Tonnage),
				"reprocessorAgency": n.ReprocessorAgency,
				"recoveryProcess":   n.RecoveryProcess,
			},
		}
		if err := d.post(ctx, req); err != nil {
			return fmt.Errorf("notify %s for %s: %w", n.Email, n.PrnNumber, err)
		}
	}
	return nil
}

func (d *EmailDispatcher) AlertOperators(ctx context.Context, message string) error {
	req := emailRequest{
		To:         d.operatorAddress,
		TemplateID: "npwd-error",
		Fields:     map[string]string{"errorMessage": message},
	}
	if err := d.post(ctx, req); err != nil {
		return fmt.Errorf("alert operators: %w", err)
	}
	return nil
}

func (d *EmailDispatcher) post(ctx context.Context, body emailRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/v2/notifications/email", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+d.apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email gateway status %d", resp.StatusCode)
	}
	return nil
}

var _ Dispatcher = (*EmailDispatcher)(nil)

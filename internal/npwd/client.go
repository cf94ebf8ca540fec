package npwd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/eprhub/prn-integration/internal/domain"
	"github.com/eprhub/prn-integration/internal/ratelimiter"
)

// issuedPrnsResponse maps the OData collection envelope around the
// issued-PRN query result.
type issuedPrnsResponse struct {
	Value []domain.Prn `json:"value"`
}

// PushResult carries the status code and raw body of a producer-delta
// push so the caller can classify non-success responses.
type PushResult struct {
	StatusCode int
	Body       string
}

// Success reports whether the push was accepted downstream.
func (r PushResult) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NeedsAlert reports whether the response class warrants an operator
// alert: server errors and request timeouts only.
func (r PushResult) NeedsAlert() bool {
	return r.StatusCode >= http.StatusInternalServerError ||
		r.StatusCode == http.StatusRequestTimeout
}

// Client talks to the NPWD authority system. Network faults, HTTP 429 and
// 5xx are classified transient so the retry policy can distinguish them;
// any other non-success is fatal for the current run.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	limiter     *ratelimiter.Outbound
}

func NewClient(baseURL, bearerToken string, timeout time.Duration, limiter *ratelimiter.Outbound) *Client {
	return &Client{
		baseURL:     baseURL,
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     limiter,
	}
}

// GetIssuedPrns queries NPWD for issued evidence records matching filter.
// An empty collection is a valid result, not an error.
func (c *Client) GetIssuedPrns(ctx context.Context, filter string) ([]domain.Prn, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/odata/PRNs?$filter=%s", c.baseURL, url.QueryEscape(filter))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Transient("get issued prns: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("get issued prns", resp.StatusCode)
	}

	var body issuedPrnsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode issued prns: %w", err)
	}
	return body.Value, nil
}

// PatchProducers pushes a producer delta to NPWD. A completed HTTP
// exchange always yields a PushResult, success or not, so the caller can
// classify; only a transport-level failure returns an error.
func (c *Client) PatchProducers(ctx context.Context, delta domain.ProducerDelta) (PushResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return PushResult{}, err
	}

	payload, err := json.Marshal(delta)
	if err != nil {
		return PushResult{}, fmt.Errorf("marshal producer delta: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.baseURL+"/odata/Producers", bytes.NewReader(payload))
	if err != nil {
		return PushResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PushResult{}, domain.Transient("patch producers: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return PushResult{}, fmt.Errorf("read push response: %w", err)
	}

	return PushResult{StatusCode: resp.StatusCode, Body: string(raw)}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
}

// classifyStatus maps a non-200 response to the retry taxonomy: 429 and
// 5xx are transient, everything else surfaces as-is.
func classifyStatus(op string, status int) error {
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return domain.Transient("%s: status %d", op, status)
	}
	return fmt.Errorf("%s: status %d", op, status)
}

package npwd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eprhub/prn-integration/internal/domain"
	"github.com/eprhub/prn-integration/internal/ratelimiter"
)

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, "test-token", 2*time.Second, ratelimiter.New(100))
}

func TestGetIssuedPrns_ParsesCollection(t *testing.T) {
	var gotAuth, gotFilter string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFilter = r.URL.Query().Get("$filter")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[{"evidenceNo":"EX-001","evidenceStatusCode":"EV-AWACCEP"},{"evidenceNo":"PRN-002","evidenceStatusCode":"EV-CANCEL"}]}`))
	}))
	defer srv.Close()

	prns, err := newTestClient(srv.URL).GetIssuedPrns(context.Background(), "EvidenceStatusCode eq 'EV-AWACCEP'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prns) != 2 {
		t.Fatalf("expected 2 prns, got %d", len(prns))
	}
	if prns[0].EvidenceNo != "EX-001" || prns[1].EvidenceStatusCode != domain.StatusCancelled {
		t.Errorf("unexpected decode: %+v", prns)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotFilter != "EvidenceStatusCode eq 'EV-AWACCEP'" {
		t.Errorf("filter = %q", gotFilter)
	}
}

func TestGetIssuedPrns_EmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[]}`))
	}))
	defer srv.Close()

	prns, err := newTestClient(srv.URL).GetIssuedPrns(context.Background(), "f")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prns) != 0 {
		t.Errorf("expected empty result, got %d", len(prns))
	}
}

func TestGetIssuedPrns_StatusClassification(t *testing.T) {
	tests := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}

	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		_, err := newTestClient(srv.URL).GetIssuedPrns(context.Background(), "f")
		srv.Close()
		if err == nil {
			t.Errorf("status %d: expected error", tc.status)
			continue
		}
		if got := domain.IsTransient(err); got != tc.wantTransient {
			t.Errorf("status %d: IsTransient = %v, want %v", tc.status, got, tc.wantTransient)
		}
	}
}

func TestGetIssuedPrns_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestClient(srv.URL).GetIssuedPrns(context.Background(), "f")
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsTransient(err) {
		t.Errorf("network error not transient: %v", err)
	}
}

func TestPatchProducers_ReturnsStatusAndBody(t *testing.T) {
	var gotMethod, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	delta := domain.MapProducerDelta([]domain.UpdatedProducer{{ProducerName: "Acme"}}, "ctx")
	res, err := newTestClient(srv.URL).PatchProducers(context.Background(), delta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("method = %q", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if res.StatusCode != http.StatusBadGateway || res.Body != "upstream exploded" {
		t.Errorf("result = %+v", res)
	}
	if res.Success() {
		t.Error("502 reported as success")
	}
	if !res.NeedsAlert() {
		t.Error("502 should need an alert")
	}
}

func TestPushResult_Classification(t *testing.T) {
	tests := []struct {
		status    int
		success   bool
		needAlert bool
	}{
		{http.StatusOK, true, false},
		{http.StatusNoContent, true, false},
		{http.StatusBadRequest, false, false},
		{http.StatusRequestTimeout, false, true},
		{http.StatusInternalServerError, false, true},
		{http.StatusBadGateway, false, true},
	}

	for _, tc := range tests {
		r := PushResult{StatusCode: tc.status}
		if r.Success() != tc.success {
			t.Errorf("status %d: Success = %v, want %v", tc.status, r.Success(), tc.success)
		}
		if r.NeedsAlert() != tc.needAlert {
			t.Errorf("status %d: NeedsAlert = %v, want %v", tc.status, r.NeedsAlert(), tc.needAlert)
		}
	}
}

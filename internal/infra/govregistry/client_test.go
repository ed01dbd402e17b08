package govregistry_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/govregistry"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/resilience"
)

func newClient(registryURL, sanctionsURL string) *govregistry.Client {
	return govregistry.NewClient(
		&http.Client{Timeout: time.Second},
		registryURL,
		sanctionsURL,
		resilience.NewCircuitBreaker("test"),
		resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond},
		zap.NewNop(),
	)
}

func TestVerifyIdentity_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/identity/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req domain.IdentityCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.IDDocumentNumber != "900101300123" {
			t.Errorf("unexpected document %s", req.IDDocumentNumber)
		}
		json.NewEncoder(w).Encode(domain.IdentityCheckResult{Status: domain.CheckVerified, Confidence: "high"})
	}))
	defer server.Close()

	client := newClient(server.URL, server.URL)

	result, err := client.VerifyIdentity(context.Background(), &domain.IdentityCheckRequest{
		FullName:         "Aigerim Bekova",
		IDDocumentNumber: "900101300123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Verified() {
		t.Errorf("expected verified result, got %+v", result)
	}
}

func TestScreen_Match(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sanctions/screen" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(domain.SanctionsResult{Match: true, ListName: "consolidated"})
	}))
	defer server.Close()

	client := newClient(server.URL, server.URL)

	result, err := client.Screen(context.Background(), &domain.SanctionsScreenRequest{FullName: "Bad Actor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Match || result.ListName != "consolidated" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestPost_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(domain.IdentityCheckResult{Status: domain.CheckVerified, Confidence: "high"})
	}))
	defer server.Close()

	client := newClient(server.URL, server.URL)

	_, err := client.VerifyIdentity(context.Background(), &domain.IdentityCheckRequest{FullName: "x"})
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestPost_ServerErrorIsExternalServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newClient(server.URL, server.URL)

	_, err := client.VerifyBusiness(context.Background(), &domain.BusinessCheckRequest{CompanyName: "x"})
	var external *domain.ErrExternalService
	if !errors.As(err, &external) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if external.Service != "registry" {
		t.Errorf("expected registry service, got %s", external.Service)
	}
}

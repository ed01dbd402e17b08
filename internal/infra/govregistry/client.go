// Package govregistry provides the external check capabilities used by the
// verification pipeline: government identity/business registry lookups and
// sanctions-list screening. Two variants exist behind the same ports — an
// HTTP client for production wiring and a deterministic stub for every
// environment where the real registries are unavailable.
package govregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/resilience"
)

var tracer = otel.Tracer("govregistry")

// Client calls the registry and sanctions HTTP APIs with retry, circuit
// breaker, bulkhead and tracing.
type Client struct {
	httpClient   *http.Client
	registryURL  string
	sanctionsURL string
	cb           *gobreaker.CircuitBreaker
	bulkhead     *resilience.Bulkhead
	cfg          resilience.Config
	logger       *zap.Logger
}

// NewClient creates a registry/sanctions client.
func NewClient(httpClient *http.Client, registryURL, sanctionsURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 16
	}
	return &Client{
		httpClient:   httpClient,
		registryURL:  registryURL,
		sanctionsURL: sanctionsURL,
		cb:           cb,
		bulkhead:     resilience.NewBulkhead(maxConcurrency),
		cfg:          cfg,
		logger:       logger,
	}
}

// VerifyIdentity checks an individual against the government registry.
func (c *Client) VerifyIdentity(ctx context.Context, req *domain.IdentityCheckRequest) (*domain.IdentityCheckResult, error) {
	ctx, span := tracer.Start(ctx, "RegistryClient.VerifyIdentity")
	defer span.End()
	span.SetAttributes(attribute.String("check.document", req.IDDocumentNumber))

	var result domain.IdentityCheckResult
	if err := c.post(ctx, "registry", c.registryURL+"/v1/identity/verify", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyBusiness checks a company against the government business registry.
func (c *Client) VerifyBusiness(ctx context.Context, req *domain.BusinessCheckRequest) (*domain.IdentityCheckResult, error) {
	ctx, span := tracer.Start(ctx, "RegistryClient.VerifyBusiness")
	defer span.End()
	span.SetAttributes(attribute.String("check.registration_number", req.RegistrationNumber))

	var result domain.IdentityCheckResult
	if err := c.post(ctx, "registry", c.registryURL+"/v1/business/verify", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Screen checks a person against the sanctions lists.
func (c *Client) Screen(ctx context.Context, req *domain.SanctionsScreenRequest) (*domain.SanctionsResult, error) {
	ctx, span := tracer.Start(ctx, "SanctionsClient.Screen")
	defer span.End()

	var result domain.SanctionsResult
	if err := c.post(ctx, "sanctions", c.sanctionsURL+"/v1/sanctions/screen", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post executes a JSON POST with the full resilience stack. A non-2xx
// response or transport failure surfaces as ErrExternalService so the
// pipeline treats it as an indeterminate failure, never a silent pass.
func (c *Client) post(ctx context.Context, service, url string, payload, out any) error {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return &domain.ErrExternalService{Service: service, Err: err}
	}
	defer c.bulkhead.Release()

	body, err := json.Marshal(payload)
	if err != nil {
		return &domain.ErrExternalService{Service: service, Err: err}
	}

	_, err = c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%s API returned status %d", service, resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(out)
		})
	})
	if err != nil {
		c.logger.Warn("external check failed",
			zap.String("service", service),
			zap.Error(err),
		)
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return &domain.ErrCircuitOpen{Service: service}
		}
		return &domain.ErrExternalService{Service: service, Err: err}
	}
	return nil
}

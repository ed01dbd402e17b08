package govregistry

import (
	"context"

	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
)

// Stub is the deterministic stand-in for the registry and sanctions APIs.
// The zero value reports every identity as verified with high confidence
// and never matches a sanctions entry; tests flip the fields to force the
// other outcomes.
type Stub struct {
	// Unverified makes registry checks report unverified/low.
	Unverified bool
	// SanctionsMatch makes every screen report a hit on ListName.
	SanctionsMatch bool
	// ListName is reported on a forced match; defaults to "consolidated".
	ListName string
	// Err, when set, is returned by every call.
	Err error

	Logger *zap.Logger
}

func (s *Stub) result() *domain.IdentityCheckResult {
	if s.Unverified {
		return &domain.IdentityCheckResult{Status: domain.CheckUnverified, Confidence: "low"}
	}
	return &domain.IdentityCheckResult{Status: domain.CheckVerified, Confidence: "high"}
}

func (s *Stub) VerifyIdentity(_ context.Context, req *domain.IdentityCheckRequest) (*domain.IdentityCheckResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Logger != nil {
		s.Logger.Debug("stub identity check",
			zap.String("full_name", req.FullName),
			zap.String("document", req.IDDocumentNumber),
		)
	}
	return s.result(), nil
}

func (s *Stub) VerifyBusiness(_ context.Context, req *domain.BusinessCheckRequest) (*domain.IdentityCheckResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Logger != nil {
		s.Logger.Debug("stub business check",
			zap.String("company", req.CompanyName),
			zap.String("registration_number", req.RegistrationNumber),
		)
	}
	return s.result(), nil
}

func (s *Stub) Screen(_ context.Context, req *domain.SanctionsScreenRequest) (*domain.SanctionsResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Logger != nil {
		s.Logger.Debug("stub sanctions screen", zap.String("full_name", req.FullName))
	}
	if s.SanctionsMatch {
		list := s.ListName
		if list == "" {
			list = "consolidated"
		}
		return &domain.SanctionsResult{Match: true, ListName: list}, nil
	}
	return &domain.SanctionsResult{Match: false}, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/observability"
	"github.com/qazcapital/kyc-onboarding-go/internal/port"
	"github.com/qazcapital/kyc-onboarding-go/internal/validate"
)

var verificationTracer = otel.Tracer("service/verification")

// errGovUnverified marks the one non-exceptional rejection: the registry
// answered, and the answer was no.
var errGovUnverified = errors.New("failed government verification")

// VerificationService runs the KYC/KYB pipeline for one profile at a time.
// Every invocation ends in a terminal status: a profile is never left
// pending once the pipeline has picked it up, whatever goes wrong inside.
type VerificationService struct {
	profiles  port.ProfileStore
	registry  port.IdentityRegistry
	sanctions port.SanctionsScreener
	cache     port.Cache[any]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewVerificationService creates the pipeline with all dependencies
// injected.
func NewVerificationService(
	profiles port.ProfileStore,
	registry port.IdentityRegistry,
	sanctions port.SanctionsScreener,
	cache port.Cache[any],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *VerificationService {
	return &VerificationService{
		profiles:  profiles,
		registry:  registry,
		sanctions: sanctions,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// Verify dispatches a queued task to the matching pipeline.
func (s *VerificationService) Verify(ctx context.Context, task port.VerificationTask) error {
	switch task.Kind {
	case port.KindInvestor:
		return s.VerifyInvestor(ctx, task.ProfileID)
	case port.KindBusiness:
		return s.VerifyBusiness(ctx, task.ProfileID)
	default:
		return fmt.Errorf("unknown verification kind %q", task.Kind)
	}
}

// ============================================================
// Investor pipeline
// ============================================================

func (s *VerificationService) VerifyInvestor(ctx context.Context, profileID string) error {
	ctx, span := verificationTracer.Start(ctx, "VerificationService.VerifyInvestor")
	defer span.End()
	span.SetAttributes(attribute.String("profile.id", profileID))

	start := time.Now()
	defer func() {
		s.metrics.RecordPipelineDuration(port.KindInvestor, time.Since(start))
	}()

	profile, err := s.profiles.GetInvestorByID(ctx, profileID)
	if err != nil {
		return fmt.Errorf("load investor profile: %w", err)
	}
	if profile == nil {
		s.logger.Warn("verification: investor profile vanished", zap.String("profile_id", profileID))
		return nil
	}
	if profile.VerificationStatus != domain.StatusPending {
		// Duplicate delivery (sweep + original enqueue); terminal state wins.
		return nil
	}

	checkErr := s.runGuarded(func() error { return s.runInvestorChecks(ctx, profile) })

	status, reason := verdict(checkErr)
	return s.conclude(ctx, port.KindInvestor, profile.ID, profile.AccountID, status, reason)
}

func (s *VerificationService) runInvestorChecks(ctx context.Context, p *domain.InvestorProfile) error {
	if err := validate.PhoneNumber(p.PhoneNumber); err != nil {
		return err
	}

	govResult, err := s.registry.VerifyIdentity(ctx, &domain.IdentityCheckRequest{
		FullName:         p.FullName(),
		IDDocumentNumber: p.IDDocumentNumber,
		DateOfBirth:      p.DateOfBirth,
	})
	if err != nil {
		s.metrics.IncrExternalError("registry")
		return err
	}

	screen, err := s.sanctions.Screen(ctx, &domain.SanctionsScreenRequest{
		FullName:    p.FullName(),
		DateOfBirth: p.DateOfBirth,
	})
	if err != nil {
		s.metrics.IncrExternalError("sanctions")
		return err
	}
	if screen.Match {
		return &domain.ErrComplianceBlock{Subject: p.FullName()}
	}

	if !govResult.Verified() {
		return errGovUnverified
	}
	return nil
}

// ============================================================
// Business pipeline
// ============================================================

func (s *VerificationService) VerifyBusiness(ctx context.Context, profileID string) error {
	ctx, span := verificationTracer.Start(ctx, "VerificationService.VerifyBusiness")
	defer span.End()
	span.SetAttributes(attribute.String("profile.id", profileID))

	start := time.Now()
	defer func() {
		s.metrics.RecordPipelineDuration(port.KindBusiness, time.Since(start))
	}()

	profile, err := s.profiles.GetBusinessByID(ctx, profileID)
	if err != nil {
		return fmt.Errorf("load business profile: %w", err)
	}
	if profile == nil {
		s.logger.Warn("verification: business profile vanished", zap.String("profile_id", profileID))
		return nil
	}
	if profile.VerificationStatus != domain.StatusPending {
		return nil
	}

	checkErr := s.runGuarded(func() error { return s.runBusinessChecks(ctx, profile) })

	status, reason := verdict(checkErr)
	return s.conclude(ctx, port.KindBusiness, profile.ID, profile.AccountID, status, reason)
}

func (s *VerificationService) runBusinessChecks(ctx context.Context, p *domain.BusinessProfile) error {
	if err := validate.RegistrationNumber(p.RegistrationNumber); err != nil {
		return err
	}
	if err := validate.TaxNumber(p.TaxNumber); err != nil {
		return err
	}

	govResult, err := s.registry.VerifyBusiness(ctx, &domain.BusinessCheckRequest{
		CompanyName:        p.CompanyName,
		RegistrationNumber: p.RegistrationNumber,
	})
	if err != nil {
		s.metrics.IncrExternalError("registry")
		return err
	}

	screen, err := s.sanctions.Screen(ctx, &domain.SanctionsScreenRequest{
		FullName:    p.DirectorFullName(),
		DateOfBirth: p.DirectorDOB,
	})
	if err != nil {
		s.metrics.IncrExternalError("sanctions")
		return err
	}
	if screen.Match {
		return &domain.ErrComplianceBlock{Subject: "director " + p.DirectorFullName()}
	}

	if !govResult.Verified() {
		return errGovUnverified
	}
	return nil
}

// ============================================================
// Verdict handling
// ============================================================

// runGuarded converts a panic inside the checks into an error so the
// fail-safe-to-rejected path still runs.
func (s *VerificationService) runGuarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return fn()
}

// verdict maps the check outcome to a terminal status and stored reason.
func verdict(err error) (status, reason string) {
	if err == nil {
		return domain.StatusApproved, ""
	}

	var validation *domain.ErrValidation
	var compliance *domain.ErrComplianceBlock
	switch {
	case errors.As(err, &compliance):
		// Dedicated reason: a sanctions match is not a mere rejection.
		return domain.StatusRejected, "cannot complete registration due to " + compliance.Error()
	case errors.As(err, &validation):
		return domain.StatusRejected, validation.Error()
	case errors.Is(err, errGovUnverified):
		return domain.StatusRejected, errGovUnverified.Error()
	default:
		return domain.StatusRejected, "verification error: " + err.Error()
	}
}

// conclude writes the terminal verdict through the CAS store call and
// keeps the read cache coherent.
func (s *VerificationService) conclude(ctx context.Context, kind, profileID, accountID, status, reason string) error {
	var (
		applied bool
		err     error
	)
	if kind == port.KindInvestor {
		applied, err = s.profiles.SetInvestorVerification(ctx, profileID, status, reason)
	} else {
		applied, err = s.profiles.SetBusinessVerification(ctx, profileID, status, reason)
	}
	if err != nil {
		return fmt.Errorf("store %s verdict: %w", kind, err)
	}
	if !applied {
		s.logger.Warn("verification: verdict lost the race, keeping terminal state",
			zap.String("kind", kind),
			zap.String("profile_id", profileID),
		)
		return nil
	}

	s.cache.Delete(kind + ":" + accountID)
	s.metrics.IncrVerdict(kind, status)

	if status == domain.StatusApproved {
		s.logger.Info("profile approved",
			zap.String("kind", kind),
			zap.String("profile_id", profileID),
		)
	} else {
		s.logger.Warn("profile rejected",
			zap.String("kind", kind),
			zap.String("profile_id", profileID),
			zap.String("reason", reason),
		)
	}
	return nil
}

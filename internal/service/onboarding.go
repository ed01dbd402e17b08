package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/observability"
	"github.com/qazcapital/kyc-onboarding-go/internal/port"
	"github.com/qazcapital/kyc-onboarding-go/internal/validate"
)

var onboardingTracer = otel.Tracer("service/onboarding")

// OnboardingService validates and persists investor/business profiles, and
// hands each freshly created profile to the background verifier. The
// client gets its created-response before any verdict exists; it polls the
// profile endpoint for the outcome.
type OnboardingService struct {
	accounts port.AccountStore
	profiles port.ProfileStore
	queue    port.VerificationQueue
	cache    port.Cache[any]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewOnboardingService creates the onboarding service with all
// dependencies injected.
func NewOnboardingService(
	accounts port.AccountStore,
	profiles port.ProfileStore,
	queue port.VerificationQueue,
	cache port.Cache[any],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OnboardingService {
	return &OnboardingService{
		accounts: accounts,
		profiles: profiles,
		queue:    queue,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// RegisterInvestor — POST /register/investor
// ============================================================

func (s *OnboardingService) RegisterInvestor(ctx context.Context, req *domain.RegisterInvestorRequest) (*domain.InvestorProfile, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.RegisterInvestor")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", req.AccountID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("register_investor", time.Since(start))
	}()

	if err := validate.PhoneNumber(req.PhoneNumber); err != nil {
		return nil, err
	}
	// National ID cards carry an IIN; other document types (passports,
	// residence permits) have formats we do not validate.
	if req.IDDocumentType == "id_card" && len(req.IDDocumentNumber) == 12 {
		if err := validate.IIN(req.IDDocumentNumber); err != nil {
			return nil, err
		}
	}

	if err := s.requireRole(ctx, req.AccountID, domain.RoleInvestor); err != nil {
		return nil, err
	}

	existing, err := s.profiles.GetInvestorByAccount(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "investor profile already exists"}
	}

	profile := &domain.InvestorProfile{
		ID:                 uuid.NewString(),
		AccountID:          req.AccountID,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		DateOfBirth:        req.DateOfBirth,
		PhoneNumber:        req.PhoneNumber,
		IDDocumentType:     req.IDDocumentType,
		IDDocumentNumber:   req.IDDocumentNumber,
		IDDocumentFront:    req.IDDocumentFront,
		IDDocumentBack:     req.IDDocumentBack,
		SelfieWithID:       req.SelfieWithID,
		Address:            req.Address,
		TaxNumber:          req.TaxNumber,
		RiskLevel:          "medium",
		VerificationStatus: domain.StatusPending,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.profiles.CreateInvestorProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.enqueue(ctx, port.VerificationTask{Kind: port.KindInvestor, ProfileID: profile.ID})

	s.logger.Info("investor profile created",
		zap.String("profile_id", profile.ID),
		zap.String("account_id", profile.AccountID),
	)
	return profile, nil
}

// ============================================================
// RegisterBusiness — POST /register/business
// ============================================================

func (s *OnboardingService) RegisterBusiness(ctx context.Context, req *domain.RegisterBusinessRequest) (*domain.BusinessProfile, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.RegisterBusiness")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", req.AccountID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("register_business", time.Since(start))
	}()

	if err := validate.RegistrationNumber(req.RegistrationNumber); err != nil {
		return nil, err
	}
	if err := validate.TaxNumber(req.TaxNumber); err != nil {
		return nil, err
	}
	if err := validate.PhoneNumber(req.PhoneNumber); err != nil {
		return nil, err
	}

	if err := s.requireRole(ctx, req.AccountID, domain.RoleBusiness); err != nil {
		return nil, err
	}

	existing, err := s.profiles.GetBusinessByAccount(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "business profile already exists"}
	}

	profile := &domain.BusinessProfile{
		ID:                      uuid.NewString(),
		AccountID:               req.AccountID,
		CompanyName:             req.CompanyName,
		RegistrationNumber:      req.RegistrationNumber,
		RegistrationDate:        req.RegistrationDate,
		TaxNumber:               req.TaxNumber,
		LegalAddress:            req.LegalAddress,
		PhysicalAddress:         req.PhysicalAddress,
		BusinessType:            req.BusinessType,
		Industry:                req.Industry,
		DirectorFirstName:       req.DirectorFirstName,
		DirectorLastName:        req.DirectorLastName,
		DirectorDOB:             req.DirectorDOB,
		DirectorIDNumber:        req.DirectorIDNumber,
		DirectorIDDocument:      req.DirectorIDDocument,
		DirectorSelfie:          req.DirectorSelfie,
		RegistrationCertificate: req.RegistrationCertificate,
		TaxCertificate:          req.TaxCertificate,
		OwnershipStructure:      req.OwnershipStructure,
		Website:                 req.Website,
		PhoneNumber:             req.PhoneNumber,
		Email:                   req.Email,
		VerificationStatus:      domain.StatusPending,
		CreatedAt:               time.Now().UTC(),
	}
	if err := s.profiles.CreateBusinessProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.enqueue(ctx, port.VerificationTask{Kind: port.KindBusiness, ProfileID: profile.ID})

	s.logger.Info("business profile created",
		zap.String("profile_id", profile.ID),
		zap.String("account_id", profile.AccountID),
	)
	return profile, nil
}

// ============================================================
// Profile reads — GET /investor/{user_id}, GET /business/{user_id}
// ============================================================

func (s *OnboardingService) GetInvestor(ctx context.Context, accountID string) (*domain.InvestorProfile, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.GetInvestor")
	defer span.End()

	cacheKey := "investor:" + accountID
	if cached, ok := s.cache.Get(cacheKey); ok {
		if p, ok := cached.(*domain.InvestorProfile); ok {
			s.metrics.IncrCacheHit("profile")
			return p, nil
		}
	}
	s.metrics.IncrCacheMiss("profile")

	profile, err := s.profiles.GetInvestorByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get investor profile: %w", err)
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "investor profile", ID: accountID}
	}
	// Pending profiles are not cached so a fresh verdict shows up on the
	// next poll.
	if profile.VerificationStatus != domain.StatusPending {
		s.cache.Set(cacheKey, profile)
	}
	return profile, nil
}

func (s *OnboardingService) GetBusiness(ctx context.Context, accountID string) (*domain.BusinessProfile, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.GetBusiness")
	defer span.End()

	cacheKey := "business:" + accountID
	if cached, ok := s.cache.Get(cacheKey); ok {
		if p, ok := cached.(*domain.BusinessProfile); ok {
			s.metrics.IncrCacheHit("profile")
			return p, nil
		}
	}
	s.metrics.IncrCacheMiss("profile")

	profile, err := s.profiles.GetBusinessByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get business profile: %w", err)
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "business profile", ID: accountID}
	}
	if profile.VerificationStatus != domain.StatusPending {
		s.cache.Set(cacheKey, profile)
	}
	return profile, nil
}

// ============================================================
// Internal helpers
// ============================================================

func (s *OnboardingService) requireRole(ctx context.Context, accountID, role string) error {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if account == nil || account.Role != role {
		return &domain.ErrConflict{Message: "invalid account or account role"}
	}
	return nil
}

// enqueue schedules verification without tying it to the request's fate: a
// full queue is logged and left to the recovery sweep, and the response to
// the client is unaffected either way.
func (s *OnboardingService) enqueue(ctx context.Context, task port.VerificationTask) {
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.logger.Error("failed to enqueue verification, sweep will retry",
			zap.String("kind", task.Kind),
			zap.String("profile_id", task.ProfileID),
			zap.Error(err),
		)
	}
}

// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
)

// AccountStore persists user accounts.
type AccountStore interface {
	// CreateAccount stores a new account. Returns *domain.ErrConflict if the
	// email is already registered.
	CreateAccount(ctx context.Context, account *domain.Account) error
	// GetAccountByEmail returns nil, nil when no account matches.
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	// GetAccountByID returns nil, nil when no account matches.
	GetAccountByID(ctx context.Context, id string) (*domain.Account, error)
}

// ProfileStore persists investor and business profiles, at most one of each
// per account.
type ProfileStore interface {
	// CreateInvestorProfile stores a new profile. Returns *domain.ErrConflict
	// if the account already has one.
	CreateInvestorProfile(ctx context.Context, profile *domain.InvestorProfile) error
	CreateBusinessProfile(ctx context.Context, profile *domain.BusinessProfile) error

	// GetInvestorByAccount returns nil, nil when no profile matches.
	GetInvestorByAccount(ctx context.Context, accountID string) (*domain.InvestorProfile, error)
	GetBusinessByAccount(ctx context.Context, accountID string) (*domain.BusinessProfile, error)

	// Lookups by profile ID, used by the verification pipeline.
	GetInvestorByID(ctx context.Context, id string) (*domain.InvestorProfile, error)
	GetBusinessByID(ctx context.Context, id string) (*domain.BusinessProfile, error)

	// SetInvestorVerification writes the terminal verdict for a profile.
	// The write only applies while the profile is still pending; it reports
	// whether the transition happened, so a duplicate pipeline run can never
	// overwrite a terminal state.
	SetInvestorVerification(ctx context.Context, profileID, status, reason string) (bool, error)
	SetBusinessVerification(ctx context.Context, profileID, status, reason string) (bool, error)

	// ListStalePending returns verification tasks for profiles that have
	// been pending since before the cutoff. Used by the recovery sweep.
	ListStalePending(ctx context.Context, cutoff time.Time) ([]VerificationTask, error)
}

// Profile kinds carried on verification tasks.
const (
	KindInvestor = "investor"
	KindBusiness = "business"
)

// VerificationTask identifies one profile awaiting a verdict.
type VerificationTask struct {
	Kind      string
	ProfileID string
}

// VerificationQueue hands profiles to the background verifier. Enqueue must
// not block the caller's response path.
type VerificationQueue interface {
	Enqueue(ctx context.Context, task VerificationTask) error
}

// IdentityRegistry checks claimed identities against a government registry.
// Implemented by an HTTP client in production and a deterministic stub
// everywhere the registry is unavailable.
type IdentityRegistry interface {
	VerifyIdentity(ctx context.Context, req *domain.IdentityCheckRequest) (*domain.IdentityCheckResult, error)
	VerifyBusiness(ctx context.Context, req *domain.BusinessCheckRequest) (*domain.IdentityCheckResult, error)
}

// SanctionsScreener screens a person against sanctions lists.
type SanctionsScreener interface {
	Screen(ctx context.Context, req *domain.SanctionsScreenRequest) (*domain.SanctionsResult, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

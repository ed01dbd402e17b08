// Package memstore provides in-memory implementations of the account and
// profile stores. Used in dev mode (no DATABASE_URL) and in tests; they
// intentionally favor clarity over performance.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/port"
)

// Store implements port.AccountStore and port.ProfileStore.
type Store struct {
	mu sync.RWMutex

	accountsByID    map[string]*domain.Account
	accountsByEmail map[string]string // email -> account ID

	investorsByID      map[string]*domain.InvestorProfile
	investorsByAccount map[string]string // account ID -> profile ID

	businessesByID      map[string]*domain.BusinessProfile
	businessesByAccount map[string]string
}

// New creates empty in-memory stores.
func New() *Store {
	return &Store{
		accountsByID:        make(map[string]*domain.Account),
		accountsByEmail:     make(map[string]string),
		investorsByID:       make(map[string]*domain.InvestorProfile),
		investorsByAccount:  make(map[string]string),
		businessesByID:      make(map[string]*domain.BusinessProfile),
		businessesByAccount: make(map[string]string),
	}
}

// --- port.AccountStore ---

func (s *Store) CreateAccount(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accountsByEmail[account.Email]; exists {
		return &domain.ErrConflict{Message: "email already registered"}
	}

	cp := *account
	s.accountsByID[cp.ID] = &cp
	s.accountsByEmail[cp.Email] = cp.ID
	return nil
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountsByEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *s.accountsByID[id]
	return &cp, nil
}

func (s *Store) GetAccountByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accountsByID[id]
	if !ok {
		return nil, nil
	}
	cp := *account
	return &cp, nil
}

// --- port.ProfileStore ---

func (s *Store) CreateInvestorProfile(_ context.Context, profile *domain.InvestorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.investorsByAccount[profile.AccountID]; exists {
		return &domain.ErrConflict{Message: "investor profile already exists"}
	}

	cp := *profile
	s.investorsByID[cp.ID] = &cp
	s.investorsByAccount[cp.AccountID] = cp.ID
	return nil
}

func (s *Store) CreateBusinessProfile(_ context.Context, profile *domain.BusinessProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.businessesByAccount[profile.AccountID]; exists {
		return &domain.ErrConflict{Message: "business profile already exists"}
	}

	cp := *profile
	s.businessesByID[cp.ID] = &cp
	s.businessesByAccount[cp.AccountID] = cp.ID
	return nil
}

func (s *Store) GetInvestorByAccount(_ context.Context, accountID string) (*domain.InvestorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.investorsByAccount[accountID]
	if !ok {
		return nil, nil
	}
	cp := *s.investorsByID[id]
	return &cp, nil
}

func (s *Store) GetBusinessByAccount(_ context.Context, accountID string) (*domain.BusinessProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.businessesByAccount[accountID]
	if !ok {
		return nil, nil
	}
	cp := *s.businessesByID[id]
	return &cp, nil
}

// GetInvestorByID is used by the verification pipeline, which holds a
// profile ID rather than an account ID.
func (s *Store) GetInvestorByID(_ context.Context, id string) (*domain.InvestorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.investorsByID[id]
	if !ok {
		return nil, nil
	}
	cp := *profile
	return &cp, nil
}

func (s *Store) GetBusinessByID(_ context.Context, id string) (*domain.BusinessProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.businessesByID[id]
	if !ok {
		return nil, nil
	}
	cp := *profile
	return &cp, nil
}

func (s *Store) SetInvestorVerification(_ context.Context, profileID, status, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.investorsByID[profileID]
	if !ok {
		return false, &domain.ErrNotFound{Resource: "investor profile", ID: profileID}
	}
	// Only transitions out of pending are allowed; a terminal verdict is
	// final.
	if profile.VerificationStatus != domain.StatusPending {
		return false, nil
	}
	profile.VerificationStatus = status
	profile.RejectionReason = reason
	return true, nil
}

func (s *Store) SetBusinessVerification(_ context.Context, profileID, status, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.businessesByID[profileID]
	if !ok {
		return false, &domain.ErrNotFound{Resource: "business profile", ID: profileID}
	}
	if profile.VerificationStatus != domain.StatusPending {
		return false, nil
	}
	profile.VerificationStatus = status
	profile.RejectionReason = reason
	return true, nil
}

func (s *Store) ListStalePending(_ context.Context, cutoff time.Time) ([]port.VerificationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []port.VerificationTask
	for id, p := range s.investorsByID {
		if p.VerificationStatus == domain.StatusPending && p.CreatedAt.Before(cutoff) {
			tasks = append(tasks, port.VerificationTask{Kind: port.KindInvestor, ProfileID: id})
		}
	}
	for id, p := range s.businessesByID {
		if p.VerificationStatus == domain.StatusPending && p.CreatedAt.Before(cutoff) {
			tasks = append(tasks, port.VerificationTask{Kind: port.KindBusiness, ProfileID: id})
		}
	}
	return tasks, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/port"
)

const investorColumns = `id, account_id, first_name, last_name, date_of_birth, phone_number,
	id_document_type, id_document_number, id_document_front, id_document_back, selfie_with_id,
	address, tax_number, risk_level, verification_status, rejection_reason, created_at`

const businessColumns = `id, account_id, company_name, registration_number, registration_date,
	tax_number, legal_address, physical_address, business_type, industry,
	director_first_name, director_last_name, director_dob, director_id_number,
	director_id_document, director_selfie, registration_certificate, tax_certificate,
	ownership_structure, website, phone_number, email, verification_status, rejection_reason, created_at`

func (s *Store) CreateInvestorProfile(ctx context.Context, p *domain.InvestorProfile) error {
	ctx, span := tracer.Start(ctx, "Store.CreateInvestorProfile")
	defer span.End()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO investor_profiles (`+investorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		p.ID, p.AccountID, p.FirstName, p.LastName, p.DateOfBirth, p.PhoneNumber,
		p.IDDocumentType, p.IDDocumentNumber, p.IDDocumentFront, p.IDDocumentBack, p.SelfieWithID,
		p.Address, p.TaxNumber, p.RiskLevel, p.VerificationStatus, p.RejectionReason, p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &domain.ErrConflict{Message: "investor profile already exists"}
		}
		return fmt.Errorf("insert investor profile: %w", err)
	}
	return nil
}

func (s *Store) CreateBusinessProfile(ctx context.Context, p *domain.BusinessProfile) error {
	ctx, span := tracer.Start(ctx, "Store.CreateBusinessProfile")
	defer span.End()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO business_profiles (`+businessColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25)`,
		p.ID, p.AccountID, p.CompanyName, p.RegistrationNumber, p.RegistrationDate,
		p.TaxNumber, p.LegalAddress, p.PhysicalAddress, p.BusinessType, p.Industry,
		p.DirectorFirstName, p.DirectorLastName, p.DirectorDOB, p.DirectorIDNumber,
		p.DirectorIDDocument, p.DirectorSelfie, p.RegistrationCertificate, p.TaxCertificate,
		p.OwnershipStructure, p.Website, p.PhoneNumber, p.Email,
		p.VerificationStatus, p.RejectionReason, p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &domain.ErrConflict{Message: "business profile already exists"}
		}
		return fmt.Errorf("insert business profile: %w", err)
	}
	return nil
}

func (s *Store) GetInvestorByAccount(ctx context.Context, accountID string) (*domain.InvestorProfile, error) {
	ctx, span := tracer.Start(ctx, "Store.GetInvestorByAccount")
	defer span.End()

	return s.scanInvestor(s.pool.QueryRow(ctx,
		`SELECT `+investorColumns+` FROM investor_profiles WHERE account_id = $1`, accountID))
}

func (s *Store) GetBusinessByAccount(ctx context.Context, accountID string) (*domain.BusinessProfile, error) {
	ctx, span := tracer.Start(ctx, "Store.GetBusinessByAccount")
	defer span.End()

	return s.scanBusiness(s.pool.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM business_profiles WHERE account_id = $1`, accountID))
}

func (s *Store) GetInvestorByID(ctx context.Context, id string) (*domain.InvestorProfile, error) {
	ctx, span := tracer.Start(ctx, "Store.GetInvestorByID")
	defer span.End()

	return s.scanInvestor(s.pool.QueryRow(ctx,
		`SELECT `+investorColumns+` FROM investor_profiles WHERE id = $1`, id))
}

func (s *Store) GetBusinessByID(ctx context.Context, id string) (*domain.BusinessProfile, error) {
	ctx, span := tracer.Start(ctx, "Store.GetBusinessByID")
	defer span.End()

	return s.scanBusiness(s.pool.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM business_profiles WHERE id = $1`, id))
}

// SetInvestorVerification applies a terminal verdict. The WHERE clause is
// the compare-and-swap: only a row still in 'pending' is updated, so two
// overlapping pipeline runs cannot both win.
func (s *Store) SetInvestorVerification(ctx context.Context, profileID, status, reason string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Store.SetInvestorVerification")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `
		UPDATE investor_profiles
		SET verification_status = $2, rejection_reason = $3
		WHERE id = $1 AND verification_status = 'pending'`,
		profileID, status, reason,
	)
	if err != nil {
		return false, fmt.Errorf("update investor verification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetBusinessVerification(ctx context.Context, profileID, status, reason string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Store.SetBusinessVerification")
	defer span.End()

	tag, err := s.pool.Exec(ctx, `
		UPDATE business_profiles
		SET verification_status = $2, rejection_reason = $3
		WHERE id = $1 AND verification_status = 'pending'`,
		profileID, status, reason,
	)
	if err != nil {
		return false, fmt.Errorf("update business verification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListStalePending(ctx context.Context, cutoff time.Time) ([]port.VerificationTask, error) {
	ctx, span := tracer.Start(ctx, "Store.ListStalePending")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
		SELECT 'investor' AS kind, id FROM investor_profiles
			WHERE verification_status = 'pending' AND created_at < $1
		UNION ALL
		SELECT 'business' AS kind, id FROM business_profiles
			WHERE verification_status = 'pending' AND created_at < $1`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale pending: %w", err)
	}
	defer rows.Close()

	var tasks []port.VerificationTask
	for rows.Next() {
		var t port.VerificationTask
		if err := rows.Scan(&t.Kind, &t.ProfileID); err != nil {
			return nil, fmt.Errorf("scan stale pending: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) scanInvestor(row pgx.Row) (*domain.InvestorProfile, error) {
	var p domain.InvestorProfile
	err := row.Scan(&p.ID, &p.AccountID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.PhoneNumber,
		&p.IDDocumentType, &p.IDDocumentNumber, &p.IDDocumentFront, &p.IDDocumentBack, &p.SelfieWithID,
		&p.Address, &p.TaxNumber, &p.RiskLevel, &p.VerificationStatus, &p.RejectionReason, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan investor profile: %w", err)
	}
	return &p, nil
}

func (s *Store) scanBusiness(row pgx.Row) (*domain.BusinessProfile, error) {
	var p domain.BusinessProfile
	err := row.Scan(&p.ID, &p.AccountID, &p.CompanyName, &p.RegistrationNumber, &p.RegistrationDate,
		&p.TaxNumber, &p.LegalAddress, &p.PhysicalAddress, &p.BusinessType, &p.Industry,
		&p.DirectorFirstName, &p.DirectorLastName, &p.DirectorDOB, &p.DirectorIDNumber,
		&p.DirectorIDDocument, &p.DirectorSelfie, &p.RegistrationCertificate, &p.TaxCertificate,
		&p.OwnershipStructure, &p.Website, &p.PhoneNumber, &p.Email,
		&p.VerificationStatus, &p.RejectionReason, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan business profile: %w", err)
	}
	return &p, nil
}

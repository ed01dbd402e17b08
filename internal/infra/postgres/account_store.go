package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
)

// uniqueViolation is the PostgreSQL error code returned by duplicate-key
// inserts; relied on instead of a read-then-write race.
const uniqueViolation = "23505"

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	ctx, span := tracer.Start(ctx, "Store.CreateAccount")
	defer span.End()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, is_active, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID, account.Email, account.PasswordHash, account.Role,
		account.IsActive, account.IsVerified, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &domain.ErrConflict{Message: "email already registered"}
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Store.GetAccountByEmail")
	defer span.End()

	return s.scanAccount(s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, is_active, is_verified, created_at, updated_at
		FROM accounts WHERE email = $1`, email))
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Store.GetAccountByID")
	defer span.End()

	return s.scanAccount(s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, is_active, is_verified, created_at, updated_at
		FROM accounts WHERE id = $1`, id))
}

func (s *Store) scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role,
		&a.IsActive, &a.IsVerified, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

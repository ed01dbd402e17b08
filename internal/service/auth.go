// Package service — AuthService handles account registration, credential
// verification and JWT token issuance/consumption.
package service

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/port"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// invalidCredentials is the single message for unknown email and wrong
// password, so callers cannot probe which emails exist.
const invalidCredentials = "incorrect email or password"

// AuthService orchestrates registration and authentication flows.
type AuthService struct {
	store     port.AccountStore
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
}

// NewAuthService creates a new auth service. The signing secret comes from
// process configuration, never a code literal.
func NewAuthService(store port.AccountStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
	}
}

// ============================================================
// Register — POST /register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterAccountRequest) (*domain.Account, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if !domain.ValidRole(req.Role) {
		return nil, &domain.ErrValidation{Field: "role", Message: "role must be 'investor' or 'business'"}
	}
	if err := checkPasswordPolicy(req.Password); err != nil {
		return nil, err
	}

	// Check before insert for the common case; the store's unique
	// constraint still decides the race.
	existing, err := s.store.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "email already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("role", account.Role),
	)

	return account, nil
}

// ============================================================
// Authenticate — POST /login
// ============================================================

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return nil, &domain.ErrUnauthorized{Message: invalidCredentials}
	}

	if !verifyPassword(password, account.PasswordHash) {
		s.logger.Warn("login: failed password attempt",
			zap.String("account_id", account.ID),
		)
		return nil, &domain.ErrUnauthorized{Message: invalidCredentials}
	}

	s.logger.Info("account logged in", zap.String("account_id", account.ID))
	return account, nil
}

// verifyPassword never errors out on malformed hash input; any internal
// failure reads as a mismatch (fail closed).
func verifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ============================================================
// Tokens
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for the account.
func (s *AuthService) IssueToken(account *domain.Account) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  account.ID,
		Role: account.Role,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "kyc-onboarding-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ResolveToken verifies signature and expiry, then re-fetches the live
// account. Fails closed on any defect: bad signature, expiry, missing
// subject, or an account that no longer exists.
func (s *AuthService) ResolveToken(ctx context.Context, tokenString string) (*domain.Account, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.ResolveToken")
	defer span.End()

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" || claims.Sub == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	account, err := s.store.GetAccountByID(ctx, claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	span.SetAttributes(attribute.String("account.id", account.ID))
	return account, nil
}

// RequireActive gates endpoints that only active accounts may use.
func (s *AuthService) RequireActive(account *domain.Account) (*domain.Account, error) {
	if !account.IsActive {
		return nil, &domain.ErrAccountInactive{}
	}
	return account, nil
}

// ============================================================
// Internal helpers
// ============================================================

// checkPasswordPolicy enforces the policy before hashing: minimum 8
// characters, at least one digit, at least one uppercase letter.
func checkPasswordPolicy(password string) error {
	if len(password) < 8 {
		return &domain.ErrValidation{Field: "password", Message: "password must be at least 8 characters"}
	}
	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		return &domain.ErrValidation{Field: "password", Message: "password must contain at least one digit"}
	}
	if !hasUpper {
		return &domain.ErrValidation{Field: "password", Message: "password must contain at least one uppercase letter"}
	}
	return nil
}

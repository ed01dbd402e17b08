package domain

import "time"

// Account roles. An account's role restricts which profile type may be
// attached to it.
const (
	RoleInvestor = "investor"
	RoleBusiness = "business"
)

// Account is a registered user of the onboarding API.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	IsActive     bool   `json:"is_active"`
	// IsVerified is part of the account contract but is not written by the
	// verification pipeline; whether it should mirror the profile status is
	// a pending product decision.
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidRole reports whether r is a registrable account role.
func ValidRole(r string) bool {
	return r == RoleInvestor || r == RoleBusiness
}

// ============================================================
// Auth — request / response types
// ============================================================

// RegisterAccountRequest is the body for POST /register.
type RegisterAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest is the body for POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

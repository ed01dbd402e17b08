package domain

import "time"

// Identity-registry check statuses.
const (
	CheckVerified   = "verified"
	CheckUnverified = "unverified"
)

// IdentityCheckResult is the outcome of a government identity or business
// registry lookup.
type IdentityCheckResult struct {
	Status     string `json:"status"`
	Confidence string `json:"confidence"`
}

// Verified reports whether the registry confirmed the identity.
func (r *IdentityCheckResult) Verified() bool {
	return r != nil && r.Status == CheckVerified
}

// SanctionsResult is the outcome of a sanctions-list screen.
type SanctionsResult struct {
	Match    bool   `json:"match"`
	ListName string `json:"list_name,omitempty"`
}

// IdentityCheckRequest is the payload for an individual identity lookup.
type IdentityCheckRequest struct {
	FullName         string    `json:"full_name"`
	IDDocumentNumber string    `json:"id_document_number"`
	DateOfBirth      time.Time `json:"date_of_birth"`
}

// BusinessCheckRequest is the payload for a business registry lookup.
type BusinessCheckRequest struct {
	CompanyName        string `json:"company_name"`
	RegistrationNumber string `json:"registration_number"`
}

// SanctionsScreenRequest is the payload for a sanctions-list screen.
type SanctionsScreenRequest struct {
	FullName    string    `json:"full_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
}

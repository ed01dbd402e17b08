package domain

import "time"

// Verification statuses. A profile starts pending and ends in exactly one
// of the terminal states; it never goes back.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// InvestorProfile holds the KYC data for an investor account. At most one
// profile exists per account.
type InvestorProfile struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"account_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	DateOfBirth      time.Time `json:"date_of_birth"`
	PhoneNumber      string    `json:"phone_number"`
	IDDocumentType   string    `json:"id_document_type"`
	IDDocumentNumber string    `json:"id_document_number"`

	// Document blobs are stored opaquely and never serialized in API
	// responses.
	IDDocumentFront []byte `json:"-"`
	IDDocumentBack  []byte `json:"-"`
	SelfieWithID    []byte `json:"-"`

	Address            string    `json:"address"`
	TaxNumber          string    `json:"tax_number,omitempty"`
	RiskLevel          string    `json:"risk_level"`
	VerificationStatus string    `json:"verification_status"`
	RejectionReason    string    `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// FullName returns the investor's name as submitted to external checks.
func (p *InvestorProfile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// BusinessProfile holds the KYB data for a business account. At most one
// profile exists per account.
type BusinessProfile struct {
	ID                 string    `json:"id"`
	AccountID          string    `json:"account_id"`
	CompanyName        string    `json:"company_name"`
	RegistrationNumber string    `json:"registration_number"`
	RegistrationDate   time.Time `json:"registration_date"`
	TaxNumber          string    `json:"tax_number"`
	LegalAddress       string    `json:"legal_address"`
	PhysicalAddress    string    `json:"physical_address"`
	BusinessType       string    `json:"business_type"`
	Industry           string    `json:"industry"`

	DirectorFirstName string    `json:"director_first_name"`
	DirectorLastName  string    `json:"director_last_name"`
	DirectorDOB       time.Time `json:"director_dob"`
	DirectorIDNumber  string    `json:"director_id_number"`

	DirectorIDDocument      []byte `json:"-"`
	DirectorSelfie          []byte `json:"-"`
	RegistrationCertificate []byte `json:"-"`
	TaxCertificate          []byte `json:"-"`

	OwnershipStructure string    `json:"ownership_structure,omitempty"`
	Website            string    `json:"website,omitempty"`
	PhoneNumber        string    `json:"phone_number"`
	Email              string    `json:"email"`
	VerificationStatus string    `json:"verification_status"`
	RejectionReason    string    `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// DirectorFullName returns the director's name as submitted to the
// sanctions screen.
func (p *BusinessProfile) DirectorFullName() string {
	return p.DirectorFirstName + " " + p.DirectorLastName
}

// ============================================================
// Onboarding — request / response types
// ============================================================

// RegisterInvestorRequest carries the parsed multipart form for
// POST /register/investor.
type RegisterInvestorRequest struct {
	AccountID        string
	FirstName        string
	LastName         string
	DateOfBirth      time.Time
	PhoneNumber      string
	IDDocumentType   string
	IDDocumentNumber string
	Address          string
	TaxNumber        string
	IDDocumentFront  []byte
	IDDocumentBack   []byte
	SelfieWithID     []byte
}

// RegisterBusinessRequest carries the parsed multipart form for
// POST /register/business.
type RegisterBusinessRequest struct {
	AccountID          string
	CompanyName        string
	RegistrationNumber string
	RegistrationDate   time.Time
	TaxNumber          string
	LegalAddress       string
	PhysicalAddress    string
	BusinessType       string
	Industry           string
	DirectorFirstName  string
	DirectorLastName   string
	DirectorDOB        time.Time
	DirectorIDNumber   string
	PhoneNumber        string
	Email              string
	OwnershipStructure string
	Website            string

	DirectorIDDocument      []byte
	DirectorSelfie          []byte
	RegistrationCertificate []byte
	TaxCertificate          []byte
}

// RegisterInvestorResponse is the body for 201 from POST /register/investor.
type RegisterInvestorResponse struct {
	Message    string `json:"message"`
	InvestorID string `json:"investor_id"`
}

// RegisterBusinessResponse is the body for 201 from POST /register/business.
type RegisterBusinessResponse struct {
	Message    string `json:"message"`
	BusinessID string `json:"business_id"`
}

package validate

import (
	"errors"
	"testing"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
)

func TestPhoneNumber(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{"plus7 with 10 digits", "+77011234567", true},
		{"eight with 10 digits", "87011234567", true},
		{"plus7 with 11 digits", "+770012345678", false},
		{"plus7 with 9 digits", "+7701123456", false},
		{"other country code", "+15551234567", false},
		{"letters", "+7701123456a", false},
		{"bare digits", "77011234567", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PhoneNumber(tt.phone)
			if tt.valid && err != nil {
				t.Errorf("PhoneNumber(%q) = %v, want nil", tt.phone, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("PhoneNumber(%q) = nil, want error", tt.phone)
			}
		})
	}
}

func TestIIN(t *testing.T) {
	tests := []struct {
		name  string
		iin   string
		valid bool
	}{
		{"1990s century digit 3", "900101300123", true},
		{"1890s century digit 1", "900101100123", true},
		{"1990s century digit 4", "851231400001", true},
		{"2000s century digit 5", "050505500001", true},
		{"unknown century digit defaults to 2000s", "050505900001", true},
		{"month 13", "901301300123", false},
		{"day 32", "900132300123", false},
		{"february 30", "900230300123", false},
		{"future birth date", "990101500123", false},
		{"too short", "90010130012", false},
		{"too long", "9001013001234", false},
		{"non-digit", "90010130012a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := IIN(tt.iin)
			if tt.valid && err != nil {
				t.Errorf("IIN(%q) = %v, want nil", tt.iin, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("IIN(%q) = nil, want error", tt.iin)
			}
		})
	}
}

func TestIINFailureType(t *testing.T) {
	err := IIN("901301300123")
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected *domain.ErrValidation, got %T", err)
	}
	if ve.Field != "id_document_number" {
		t.Errorf("field = %q, want id_document_number", ve.Field)
	}
}

func TestRegistrationNumber(t *testing.T) {
	tests := []struct {
		name  string
		reg   string
		valid bool
	}{
		{"plain 12 digits", "123456789012", true},
		{"exactly 10 digits", "1234567890", true},
		{"hyphenated", "1234-5678-9012", true},
		{"too short", "123456789", false},
		{"letters", "12345678AB", false},
		{"hyphens only", "----------", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RegistrationNumber(tt.reg)
			if tt.valid && err != nil {
				t.Errorf("RegistrationNumber(%q) = %v, want nil", tt.reg, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("RegistrationNumber(%q) = nil, want error", tt.reg)
			}
		})
	}
}

func TestTaxNumber(t *testing.T) {
	tests := []struct {
		name  string
		tax   string
		valid bool
	}{
		{"12 digits", "123456789012", true},
		{"11 digits", "12345678901", false},
		{"13 digits", "1234567890123", false},
		{"hyphenated", "1234-5678-9012", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TaxNumber(tt.tax)
			if tt.valid && err != nil {
				t.Errorf("TaxNumber(%q) = %v, want nil", tt.tax, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("TaxNumber(%q) = nil, want error", tt.tax)
			}
		})
	}
}

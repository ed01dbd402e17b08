// Package validate holds the identity-format validators used during
// onboarding and inside the verification pipeline. All checks are pure;
// failures are reported as *domain.ErrValidation and the caller decides
// whether they abort the request.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
)

var phonePattern = regexp.MustCompile(`^\+7\d{10}$|^8\d{10}$`)

// PhoneNumber checks the Kazakhstan phone number format:
// +7 followed by 10 digits, or 8 followed by 10 digits.
func PhoneNumber(phone string) error {
	if !phonePattern.MatchString(phone) {
		return &domain.ErrValidation{
			Field:   "phone_number",
			Message: "phone number must be in format +7XXXXXXXXXX or 8XXXXXXXXXX",
		}
	}
	return nil
}

// IIN checks a Kazakhstan individual identification number: 12 digits
// encoding the birth date, with the 7th digit selecting the century.
func IIN(iin string) error {
	if len(iin) != 12 || !allDigits(iin) {
		return &domain.ErrValidation{Field: "id_document_number", Message: "IIN must be 12 digits"}
	}

	year, _ := strconv.Atoi(iin[0:2])
	month, _ := strconv.Atoi(iin[2:4])
	day, _ := strconv.Atoi(iin[4:6])

	var fullYear int
	switch iin[6] {
	case '1', '2':
		fullYear = 1800 + year
	case '3', '4':
		fullYear = 1900 + year
	default:
		// Any other century digit maps to the 2000s.
		fullYear = 2000 + year
	}

	birthDate := time.Date(fullYear, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (month 13 becomes January of the next
	// year), so an invalid calendar date never round-trips.
	if birthDate.Year() != fullYear || birthDate.Month() != time.Month(month) || birthDate.Day() != day {
		return &domain.ErrValidation{Field: "id_document_number", Message: "invalid birth date in IIN"}
	}
	if birthDate.After(time.Now()) {
		return &domain.ErrValidation{Field: "id_document_number", Message: "invalid birth date in IIN"}
	}

	return nil
}

// RegistrationNumber checks a business registration number: hyphens are
// cosmetic, the rest must be all digits and at least 10 of them.
func RegistrationNumber(regNumber string) error {
	stripped := strings.ReplaceAll(regNumber, "-", "")
	if len(stripped) < 10 || !allDigits(stripped) {
		return &domain.ErrValidation{
			Field:   "registration_number",
			Message: "invalid business registration number format",
		}
	}
	return nil
}

// TaxNumber checks a tax identification number: exactly 12 digits.
func TaxNumber(taxNumber string) error {
	if len(taxNumber) != 12 || !allDigits(taxNumber) {
		return &domain.ErrValidation{Field: "tax_number", Message: "tax number must be 12 digits"}
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

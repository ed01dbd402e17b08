package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/service"
)

// maxUploadBytes bounds the in-memory portion of a multipart submission.
// Larger parts spill to temp files via the stdlib multipart reader.
const maxUploadBytes = 32 << 20

func registerInvestorHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /register/investor")
		defer span.End()

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		dob, err := parseFormDate(r, "date_of_birth")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		req := &domain.RegisterInvestorRequest{
			AccountID:        r.FormValue("user_id"),
			FirstName:        r.FormValue("first_name"),
			LastName:         r.FormValue("last_name"),
			DateOfBirth:      dob,
			PhoneNumber:      r.FormValue("phone_number"),
			IDDocumentType:   r.FormValue("id_document_type"),
			IDDocumentNumber: r.FormValue("id_document_number"),
			Address:          r.FormValue("address"),
			TaxNumber:        r.FormValue("tax_number"),
		}
		if req.AccountID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		span.SetAttributes(attribute.String("account.id", req.AccountID))

		for _, f := range []struct {
			field string
			dest  *[]byte
		}{
			{"id_document_front", &req.IDDocumentFront},
			{"id_document_back", &req.IDDocumentBack},
			{"selfie_with_id", &req.SelfieWithID},
		} {
			data, err := readFormFile(r, f.field)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			*f.dest = data
		}

		profile, err := svc.RegisterInvestor(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, domain.RegisterInvestorResponse{
			Message:    "investor registration submitted, verification in progress",
			InvestorID: profile.ID,
		})
	}
}

func registerBusinessHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /register/business")
		defer span.End()

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		regDate, err := parseFormDate(r, "registration_date")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		directorDOB, err := parseFormDate(r, "director_dob")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		req := &domain.RegisterBusinessRequest{
			AccountID:          r.FormValue("user_id"),
			CompanyName:        r.FormValue("company_name"),
			RegistrationNumber: r.FormValue("registration_number"),
			RegistrationDate:   regDate,
			TaxNumber:          r.FormValue("tax_number"),
			LegalAddress:       r.FormValue("legal_address"),
			PhysicalAddress:    r.FormValue("physical_address"),
			BusinessType:       r.FormValue("business_type"),
			Industry:           r.FormValue("industry"),
			DirectorFirstName:  r.FormValue("director_first_name"),
			DirectorLastName:   r.FormValue("director_last_name"),
			DirectorDOB:        directorDOB,
			DirectorIDNumber:   r.FormValue("director_id_number"),
			PhoneNumber:        r.FormValue("phone_number"),
			Email:              r.FormValue("email"),
			OwnershipStructure: r.FormValue("ownership_structure"),
			Website:            r.FormValue("website"),
		}
		if req.AccountID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		span.SetAttributes(attribute.String("account.id", req.AccountID))

		for _, f := range []struct {
			field string
			dest  *[]byte
		}{
			{"director_id_document", &req.DirectorIDDocument},
			{"director_selfie", &req.DirectorSelfie},
			{"company_registration_certificate", &req.RegistrationCertificate},
			{"tax_registration_certificate", &req.TaxCertificate},
		} {
			data, err := readFormFile(r, f.field)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			*f.dest = data
		}

		profile, err := svc.RegisterBusiness(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, domain.RegisterBusinessResponse{
			Message:    "business registration submitted, verification in progress",
			BusinessID: profile.ID,
		})
	}
}

func getInvestorHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /investor/{user_id}")
		defer span.End()

		accountID := chi.URLParam(r, "userID")
		profile, err := svc.GetInvestor(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func getBusinessHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /business/{user_id}")
		defer span.End()

		accountID := chi.URLParam(r, "userID")
		profile, err := svc.GetBusiness(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// parseFormDate reads a required YYYY-MM-DD form field.
func parseFormDate(r *http.Request, field string) (time.Time, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a YYYY-MM-DD date", field)
	}
	return t, nil
}

// readFormFile reads a required multipart file part into memory.
func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s file is required", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("could not read %s", field)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s file is empty", field)
	}
	return data, nil
}

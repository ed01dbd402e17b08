package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/service"
)

func registerAccountHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /register")
		defer span.End()

		var req domain.RegisterAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		account, err := authSvc.Register(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, account)
	}
}

func loginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /login")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		account, err := authSvc.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		token, err := authSvc.IssueToken(account)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.LoginResponse{
			AccessToken: token,
			TokenType:   "bearer",
		})
	}
}

func currentAccountHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /users/me")
		defer span.End()

		account := AccountFromContext(r.Context())
		if account == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		account, err := authSvc.RequireActive(account)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, account)
	}
}

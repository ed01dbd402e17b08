package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/domain"
	"github.com/qazcapital/kyc-onboarding-go/internal/handler"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/cache"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/govregistry"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/memstore"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/observability"
	"github.com/qazcapital/kyc-onboarding-go/internal/service"
	"github.com/qazcapital/kyc-onboarding-go/internal/verifier"
)

// newTestRouter wires the full stack against in-memory stores, stub
// checks and a live background verifier.
func newTestRouter(t *testing.T, stub *govregistry.Stub) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memstore.New()
	profileCache := cache.New[any](time.Minute)

	queue := verifier.NewQueue(16, metrics)
	verifySvc := service.NewVerificationService(store, stub, stub, profileCache, metrics, logger)
	runner := verifier.NewRunner(queue, verifySvc, store, verifier.Config{
		Workers:       2,
		TaskTimeout:   time.Second,
		SweepInterval: time.Hour,
		SweepDeadline: time.Hour,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	authSvc := service.NewAuthService(store, "router-test-secret", time.Hour, logger)
	onboardingSvc := service.NewOnboardingService(store, store, queue, profileCache, metrics, logger)

	return handler.NewRouter(authSvc, onboardingSvc, metrics, logger)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func registerAccount(t *testing.T, router http.Handler, email, role string) *domain.Account {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/register", map[string]string{
		"email":    email,
		"password": "Passw0rd1",
		"role":     role,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var account domain.Account
	decodeBody(t, rec, &account)
	return &account
}

// --- Operational endpoints ---

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestVerificationStats(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	req := httptest.NewRequest(http.MethodGet, "/verifications/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats observability.VerificationStats
	decodeBody(t, rec, &stats)
}

// --- Auth flow ---

func TestRegisterLoginMe(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	account := registerAccount(t, router, "me@example.com", domain.RoleInvestor)
	if account.ID == "" {
		t.Fatal("expected account ID in response")
	}
	if strings.Contains(account.PasswordHash, "$") {
		t.Error("password hash leaked in response")
	}

	rec := doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"email":    "me@example.com",
		"password": "Passw0rd1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var login domain.LoginResponse
	decodeBody(t, rec, &login)
	if login.AccessToken == "" || login.TokenType != "bearer" {
		t.Fatalf("unexpected login response: %+v", login)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, req)

	if meRec.Code != http.StatusOK {
		t.Fatalf("users/me: expected 200, got %d: %s", meRec.Code, meRec.Body.String())
	}
	var me domain.Account
	decodeBody(t, meRec, &me)
	if me.Email != "me@example.com" {
		t.Errorf("expected own account, got %q", me.Email)
	}
}

func TestUsersMe_Unauthorized(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRegister_DuplicateEmailIsBadRequest(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	registerAccount(t, router, "dup@example.com", domain.RoleInvestor)

	rec := doJSON(t, router, http.MethodPost, "/register", map[string]string{
		"email":    "dup@example.com",
		"password": "Passw0rd1",
		"role":     domain.RoleInvestor,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	rec := doJSON(t, router, http.MethodPost, "/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "Passw0rd1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// --- Onboarding flow ---

func investorForm(t *testing.T, accountID string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"user_id":            accountID,
		"first_name":         "Aigerim",
		"last_name":          "Bekova",
		"date_of_birth":      "1990-01-01",
		"phone_number":       "+77011234567",
		"id_document_type":   "id_card",
		"id_document_number": "900101300123",
		"address":            "Almaty, Abay 10",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, name := range []string{"id_document_front", "id_document_back", "selfie_with_id"} {
		fw, err := w.CreateFormFile(name, name+".jpg")
		if err != nil {
			t.Fatalf("create file %s: %v", name, err)
		}
		if _, err := fw.Write([]byte("jpeg-bytes")); err != nil {
			t.Fatalf("write file %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestInvestorOnboardingFlow(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	account := registerAccount(t, router, "investor@example.com", domain.RoleInvestor)

	body, contentType := investorForm(t, account.ID)
	req := httptest.NewRequest(http.MethodPost, "/register/investor", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.RegisterInvestorResponse
	decodeBody(t, rec, &created)
	if created.InvestorID == "" {
		t.Fatal("expected investor_id in response")
	}

	// The verdict lands asynchronously; poll like a client would.
	deadline := time.Now().Add(2 * time.Second)
	for {
		getReq := httptest.NewRequest(http.MethodGet, "/investor/"+account.ID, nil)
		getRec := httptest.NewRecorder()
		router.ServeHTTP(getRec, getReq)
		if getRec.Code != http.StatusOK {
			t.Fatalf("get investor: expected 200, got %d", getRec.Code)
		}

		var profile domain.InvestorProfile
		decodeBody(t, getRec, &profile)
		if profile.VerificationStatus == domain.StatusApproved {
			break
		}
		if profile.VerificationStatus == domain.StatusRejected {
			t.Fatalf("profile rejected: %s", profile.RejectionReason)
		}
		if time.Now().After(deadline) {
			t.Fatalf("profile still %s after deadline", profile.VerificationStatus)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestInvestorOnboarding_SanctionsRejection(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{SanctionsMatch: true})

	account := registerAccount(t, router, "blocked@example.com", domain.RoleInvestor)

	body, contentType := investorForm(t, account.ID)
	req := httptest.NewRequest(http.MethodPost, "/register/investor", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		getReq := httptest.NewRequest(http.MethodGet, "/investor/"+account.ID, nil)
		getRec := httptest.NewRecorder()
		router.ServeHTTP(getRec, getReq)

		var profile domain.InvestorProfile
		decodeBody(t, getRec, &profile)
		if profile.VerificationStatus == domain.StatusRejected {
			if !strings.Contains(profile.RejectionReason, "sanctions") {
				t.Errorf("unexpected rejection reason: %s", profile.RejectionReason)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("profile still %s after deadline", profile.VerificationStatus)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRegisterInvestor_MissingFile(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	account := registerAccount(t, router, "nofile@example.com", domain.RoleInvestor)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("user_id", account.ID)
	_ = w.WriteField("first_name", "Aigerim")
	_ = w.WriteField("last_name", "Bekova")
	_ = w.WriteField("date_of_birth", "1990-01-01")
	_ = w.WriteField("phone_number", "+77011234567")
	_ = w.WriteField("id_document_type", "id_card")
	_ = w.WriteField("id_document_number", "900101300123")
	_ = w.WriteField("address", "Almaty")
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/register/investor", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterInvestor_InvalidPhone(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	account := registerAccount(t, router, "badphone@example.com", domain.RoleInvestor)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("user_id", account.ID)
	_ = w.WriteField("first_name", "Aigerim")
	_ = w.WriteField("last_name", "Bekova")
	_ = w.WriteField("date_of_birth", "1990-01-01")
	_ = w.WriteField("phone_number", "+1555123456")
	_ = w.WriteField("id_document_type", "id_card")
	_ = w.WriteField("id_document_number", "900101300123")
	_ = w.WriteField("address", "Almaty")
	for _, name := range []string{"id_document_front", "id_document_back", "selfie_with_id"} {
		fw, _ := w.CreateFormFile(name, name+".jpg")
		fmt.Fprint(fw, "jpeg-bytes")
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/register/investor", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetInvestor_NotFound(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	req := httptest.NewRequest(http.MethodGet, "/investor/no-such-account", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetBusiness_NotFound(t *testing.T) {
	router := newTestRouter(t, &govregistry.Stub{})

	req := httptest.NewRequest(http.MethodGet, "/business/no-such-account", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/infra/observability"
	"github.com/qazcapital/kyc-onboarding-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	authSvc *service.AuthService,
	onboardingSvc *service.OnboardingService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Accounts & auth ---
	r.Post("/register", registerAccountHandler(authSvc, logger))
	r.Post("/login", loginHandler(authSvc, logger))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(authSvc, logger))
		r.Get("/users/me", currentAccountHandler(authSvc, logger))
	})

	// --- Onboarding ---
	r.Post("/register/investor", registerInvestorHandler(onboardingSvc, logger))
	r.Post("/register/business", registerBusinessHandler(onboardingSvc, logger))
	r.Get("/investor/{userID}", getInvestorHandler(onboardingSvc, logger))
	r.Get("/business/{userID}", getBusinessHandler(onboardingSvc, logger))

	// --- Pipeline stats ---
	r.Get("/verifications/stats", verificationStatsHandler(metrics))

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func verificationStatsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetVerificationStats())
	}
}

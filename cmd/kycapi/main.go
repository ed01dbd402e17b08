package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qazcapital/kyc-onboarding-go/internal/config"
	"github.com/qazcapital/kyc-onboarding-go/internal/handler"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/cache"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/govregistry"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/memstore"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/observability"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/postgres"
	"github.com/qazcapital/kyc-onboarding-go/internal/infra/resilience"
	"github.com/qazcapital/kyc-onboarding-go/internal/port"
	"github.com/qazcapital/kyc-onboarding-go/internal/service"
	"github.com/qazcapital/kyc-onboarding-go/internal/verifier"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_stub_checks", cfg.UseStubChecks),
		zap.Bool("use_postgres", cfg.DatabaseURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("verify_workers", cfg.VerifyWorkers),
		zap.Duration("sweep_interval", cfg.SweepInterval),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "kyc-onboarding-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	profileCache := cache.New[any](cfg.CacheTTL)

	// --- Stores ---
	var accounts port.AccountStore
	var profiles port.ProfileStore
	if cfg.DatabaseURL != "" {
		logger.Info("using Postgres as data backend")
		store, err := postgres.New(context.Background(), cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to Postgres", zap.Error(err))
		}
		defer store.Close()
		accounts = store
		profiles = store
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		store := memstore.New()
		accounts = store
		profiles = store
	}

	// --- External checks ---
	var registry port.IdentityRegistry
	var sanctions port.SanctionsScreener
	if cfg.UseStubChecks {
		logger.Info("using stub government and sanctions checks")
		stub := &govregistry.Stub{Logger: logger}
		registry = stub
		sanctions = stub
	} else {
		logger.Info("using external check services",
			zap.String("registry_url", cfg.RegistryAPIURL),
			zap.String("sanctions_url", cfg.SanctionsAPIURL),
		)
		client := govregistry.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.RegistryAPIURL,
			cfg.SanctionsAPIURL,
			resilience.NewCircuitBreaker("gov-checks"),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
			logger,
		)
		registry = client
		sanctions = client
	}

	// --- Verification pipeline ---
	queue := verifier.NewQueue(cfg.VerifyQueueSize, metrics)
	verifySvc := service.NewVerificationService(profiles, registry, sanctions, profileCache, metrics, logger)
	runner := verifier.NewRunner(queue, verifySvc, profiles, verifier.Config{
		Workers:       cfg.VerifyWorkers,
		TaskTimeout:   cfg.VerifyTimeout,
		SweepInterval: cfg.SweepInterval,
		SweepDeadline: cfg.SweepDeadline,
	}, logger)

	runCtx, stopRunner := context.WithCancel(context.Background())
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		if err := runner.Run(runCtx); err != nil {
			logger.Error("verification runner stopped", zap.Error(err))
		}
	}()

	// --- Services ---
	authSvc := service.NewAuthService(accounts, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	onboardingSvc := service.NewOnboardingService(accounts, profiles, queue, profileCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(authSvc, onboardingSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	// Stop the verifier after the HTTP surface is drained so in-flight
	// registrations still get their tasks picked up.
	stopRunner()
	select {
	case <-runnerDone:
	case <-time.After(5 * time.Second):
		logger.Warn("verification runner did not stop in time")
	}

	logger.Info("server stopped")
}

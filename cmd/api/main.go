package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmcallister-dev/medgate/internal/auth"
	"github.com/dmcallister-dev/medgate/internal/background"
	"github.com/dmcallister-dev/medgate/internal/config"
	"github.com/dmcallister-dev/medgate/internal/database"
	"github.com/dmcallister-dev/medgate/internal/handlers"
	middlewareCustom "github.com/dmcallister-dev/medgate/internal/middleware"
	"github.com/dmcallister-dev/medgate/internal/repositories"
	"github.com/dmcallister-dev/medgate/internal/routes"
	"github.com/dmcallister-dev/medgate/internal/services"
	pkghttp "github.com/dmcallister-dev/medgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	lockoutRepo := repositories.NewLockoutRepository(db)
	codeRepo := repositories.NewEmergencyCodeRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	clock := services.SystemClock{}

	// Services
	auditService := services.NewAuditService(auditRepo, clock, logger)

	analyzer := services.NewAttackPatternAnalyzer(attemptRepo, auditService, services.PatternConfig{
		Window:                      cfg.Guard.PatternWindow,
		BruteForceThreshold:         cfg.Guard.BruteForceThreshold,
		StuffingIdentifierThreshold: cfg.Guard.StuffingIdentifierThreshold,
		StuffingAttemptThreshold:    cfg.Guard.StuffingAttemptThreshold,
	}, clock, logger)

	guard := services.NewBruteForceGuard(attemptRepo, lockoutRepo, auditService, analyzer, services.GuardConfig{
		MaxAttemptsPerIP:     cfg.Guard.MaxAttemptsPerIP,
		MaxAttemptsPerUser:   cfg.Guard.MaxAttemptsPerUser,
		AttemptWindow:        cfg.Guard.AttemptWindow,
		LockoutLadderMinutes: cfg.Guard.LockoutLadderMinutes,
		EscalationWindow:     cfg.Guard.EscalationWindow,
	}, clock, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Emergency.TimingBaseMs,
		RandomDelayMs: cfg.Emergency.TimingJitterMs,
	})

	var delivery services.CodeDeliveryChannel
	if cfg.Email.Enabled {
		sesChannel, err := services.NewAWSSESDeliveryChannel(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email delivery", slog.Any("error", err))
			os.Exit(1)
		}
		delivery = sesChannel
	} else {
		delivery = services.NewNoopDeliveryChannel(logger)
	}

	emergencyService := services.NewEmergencyService(codeRepo, delivery, auditService, timingDelay, services.EmergencyConfig{
		CodeTTL:    cfg.Emergency.CodeTTL,
		CodeLength: cfg.Emergency.CodeLength,
	}, clock, logger)

	// Background maintenance
	cleanupManager := background.NewCleanupManager(attemptRepo, lockoutRepo, codeRepo, auditRepo, background.Config{
		Interval:           cfg.Retention.CleanupInterval,
		AttemptRetention:   cfg.Retention.AttemptRetention,
		AuditRetentionDays: cfg.Retention.AuditRetentionDays,
	}, clock, logger)

	// Admin token validation
	tokenManager := auth.NewTokenManager(cfg.Auth.AdminJWTSecret, cfg.Auth.TokenExpiry)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	attemptsHandler := handlers.NewAttemptsHandler(guard)
	lockoutsHandler := handlers.NewLockoutsHandler(guard, ipConfig)
	emergencyHandler := handlers.NewEmergencyHandler(emergencyService, ipConfig)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middlewareCustom.RateLimitByIP(middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Server.GlobalRequestsPerMinute,
	}))

	routes.RegisterRoutes(router,
		attemptsHandler,
		lockoutsHandler,
		emergencyHandler,
		auditHandler,
		tokenManager,
		middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.AuthRequestsPerMinute},
	)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

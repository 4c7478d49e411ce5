package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datatrace-io/datatrace/internal/auth"
	"github.com/datatrace-io/datatrace/internal/background"
	"github.com/datatrace-io/datatrace/internal/config"
	"github.com/datatrace-io/datatrace/internal/database"
	"github.com/datatrace-io/datatrace/internal/handlers"
	middlewareCustom "github.com/datatrace-io/datatrace/internal/middleware"
	"github.com/datatrace-io/datatrace/internal/repositories"
	"github.com/datatrace-io/datatrace/internal/routes"
	"github.com/datatrace-io/datatrace/internal/services"
	"github.com/datatrace-io/datatrace/pkg/clock"
	pkglogger "github.com/datatrace-io/datatrace/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Relational store: users, search log, usage ledger
	pg, err := database.NewPostgres(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pg.Close()

	if err := database.MigratePostgres(&cfg.Postgres, logger); err != nil {
		logger.Error("failed to run postgres migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Analytical store: the person dataset
	ch, err := database.NewClickHouse(&cfg.ClickHouse, logger)
	if err != nil {
		logger.Error("failed to connect to clickhouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer ch.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := ch.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Error("failed to run clickhouse migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize repositories
	peopleRepo := repositories.NewPeopleRepository(ch)
	searchLogRepo := repositories.NewSearchLogRepository(pg)
	usageRepo := repositories.NewUsageRepository(pg)
	userRepo := repositories.NewUserRepository(pg)
	systemLogRepo := repositories.NewSystemLogRepository(pg)
	exportRepo := repositories.NewExportRepository(pg)

	// Initialize services
	quotaLoc := cfg.Quota.QuotaLocation()
	sysClock := clock.System()
	quotaService := services.NewQuotaService(userRepo, usageRepo, quotaLoc, sysClock, logger)
	searchService := services.NewSearchService(peopleRepo, searchLogRepo, quotaService, logger)
	exportService := services.NewExportService(peopleRepo, searchLogRepo, exportRepo, quotaService, cfg.Export, logger)

	// Usage reset scheduler
	resetManager := background.NewResetManager(usageRepo, systemLogRepo, quotaLoc, sysClock, cfg.Quota.UsageRetentionDays, logger)

	// Token validation
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	// Initialize handlers
	auditLogger := pkglogger.NewAuditLogger(logger)
	searchHandler := handlers.NewSearchHandler(searchService, quotaService, auditLogger)
	exportHandler := handlers.NewExportHandler(exportService, auditLogger)
	adminHandler := handlers.NewAdminHandler(resetManager, auditLogger)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.RateLimitByIP(middlewareCustom.DefaultIPRateLimit()))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(90 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, searchHandler, exportHandler, adminHandler, tokenManager, userRepo)

	// Health check covering both stores
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := pg.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","postgres":"down"}`))
			return
		}
		if err := ch.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","clickhouse":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","postgres":"up","clickhouse":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the reset scheduler
	resetCtx, resetCancel := context.WithCancel(context.Background())
	defer resetCancel()

	go resetManager.Start(resetCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	resetCancel()
	resetManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

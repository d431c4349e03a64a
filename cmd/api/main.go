package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/background"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/denylist"
	"github.com/BradenHooton/warden/internal/handlers"
	middlewareCustom "github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	"github.com/BradenHooton/warden/internal/views"
	pkgcrypto "github.com/BradenHooton/warden/pkg/crypto"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/go-chi/chi/v5"
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

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.Bool("deny_access", cfg.Admin.DenyAccessEnabled()))

	// Initialize database
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewConnection(connectCtx, &cfg.Database, logger)
	connectCancel()
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(migrateCtx, db.Pool, logger)
	migrateCancel()
	if err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	denyRepo := repositories.NewDenyListRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	// Security primitives
	cipher, err := pkgcrypto.NewFieldCipher(cfg.Admin.FieldEncryptionKey)
	if err != nil {
		logger.Error("failed to initialize field cipher", slog.Any("error", err))
		os.Exit(1)
	}

	cookieConfig := auth.CookieConfig{
		Domain:   cfg.Auth.CookieDomain,
		Secure:   cfg.Auth.CookieSecure,
		SameSite: cfg.Auth.CookieSameSite,
	}
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	csrfManager := auth.NewCSRFTokenManager(cfg.Auth.CSRFTokenTTL, cookieConfig)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.LoginTimingBaseMs,
		RandomDelayMs: cfg.Auth.LoginTimingRandMs,
	})
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	auditLogger := pkglogger.NewAuditLogger(logger).WithSink(auditRepo)

	// Initialize services
	adminService := services.NewAdminService(userRepo, cipher, auditLogger, logger, services.AdminServiceConfig{
		ManageUsersURL: handlers.ManageUsersPath,
		PerPage:        cfg.Admin.UsersPerPage,
		NumLinks:       cfg.Admin.PaginationNumLinks,
	})
	denyFile := denylist.NewFileWriter(cfg.Admin.DenyFilePath, cfg.Admin.DenyFileFormat, logger)
	denyListService := services.NewDenyListService(denyRepo, denyFile, auditLogger, logger, cfg.Admin.DenyAccessEnabled())
	authService := services.NewAuthService(userRepo, tokenManager, timingDelay, auditLogger, logger, cfg.Server.Env)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := services.EnsureAdmin(ctx, userRepo, cfg.Admin.BootstrapUsername, cfg.Admin.BootstrapEmail, cfg.Admin.BootstrapPassword, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Initialize handlers
	renderer, err := views.New()
	if err != nil {
		logger.Error("failed to parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	adminHandler := handlers.NewAdminHandler(adminService, denyListService, csrfManager, renderer, ipConfig, logger)
	authHandler := handlers.NewAuthHandler(authService, csrfManager, renderer, cookieConfig, cfg.Auth.AccessTokenExpiry, ipConfig, logger)

	// Setup router
	router := chi.NewRouter()
	routes.UseMiddleware(router, routes.Stack{
		Env:            cfg.Server.Env,
		ForceSSL:       cfg.Server.ForceSSL,
		RequestTimeout: 60 * time.Second,
		Tokens:         tokenManager,
		Users:          userRepo,
		CSRF:           csrfManager,
		IPConfig:       ipConfig,
		Logger:         logger,
	})

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.HealthCheck(r.Context())
		if err != nil {
			logger.Warn("health check failed", slog.Any("error", err))
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, pkghttp.Envelope{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, pkghttp.Envelope{"status": "healthy", "database": "up", "pool": stats})
	})

	// Register routes
	routes.RegisterRoutes(router, adminHandler, authHandler, routes.RateLimits{
		Login: middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Auth.LoginRatePerMinute, IPConfig: ipConfig},
		Admin: middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Admin.RatePerMinute, IPConfig: ipConfig},
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start maintenance task
	maintenanceCtx, maintenanceCancel := context.WithCancel(context.Background())
	defer maintenanceCancel()

	maintenance := background.NewMaintenanceManager(csrfManager, denyListService, logger, cfg.Maintenance.Interval)
	go maintenance.Start(maintenanceCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	maintenanceCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

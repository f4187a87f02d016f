package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/nmateus/go-user-accounts/app/db"
	appLogger "github.com/nmateus/go-user-accounts/app/logger"
	"github.com/nmateus/go-user-accounts/app/observability/metrics"
	"github.com/nmateus/go-user-accounts/app/tracer"
	"github.com/nmateus/go-user-accounts/config"
	"github.com/nmateus/go-user-accounts/internal/api/auth"
	"github.com/nmateus/go-user-accounts/internal/api/org"
	"github.com/nmateus/go-user-accounts/internal/api/user"
	"github.com/nmateus/go-user-accounts/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracer.InitTracingAndMetrics(cfg.Handlers.Prometheus.Port)
	metrics.InitAppMetrics()

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// Dependency wiring: repositories -> services -> handlers.
	tokenIssuer := auth.NewTokenIssuer(cfg.JWT)
	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, tokenIssuer, logger)
	authHandler := auth.NewAuthHandlerImpl(authService, &cfg, logger)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewUserService(userRepo, logger)
	userHandler := user.NewHandlerImpl(userService, logger)

	orgRepo := org.NewPostgresOrgRepo(pool, logger)
	orgHandler := org.NewHandlerImpl(orgRepo, logger)

	apiRouter := router.SetupRouter(&router.Config{
		AuthHandler:            authHandler,
		UserHandler:            userHandler,
		OrgHandler:             orgHandler,
		AuthenticateMiddleware: auth.Authenticate(logger, tokenIssuer, authService),
		AllowedOrigins:         cfg.Cors.AllowedOrigins,
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(cfg.Server.Timeout))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", apiRouter)

	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger returns tint-colored debug logging in development and JSON
// logging elsewhere.
func setupLogger(mode string) *slog.Logger {
	if mode == "development" || mode == "" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

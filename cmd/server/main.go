// Package main initializes and starts the fintrack HTTP server,
// setting up configuration, logging, the database connection,
// repositories, services, and handlers.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/db"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/repository"
	"fintrack/internal/schema"
	"fintrack/internal/server/handler/http"
	"fintrack/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// cmpOr mirrors cmp.Or (added in Go 1.22), which is unavailable on the
// Go 1.21 toolchain: it returns the first of its arguments that is not
// the zero value, or the zero value if none qualifies.
func cmpOr[T comparable](vals ...T) T {
	var zero T
	for _, val := range vals {
		if val != zero {
			return val
		}
	}
	return zero
}

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmpOr(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmpOr(buildDate, "N/A"))

	// Initialize structured logging. Development gets Debug level.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	level := "Info"
	if options.Environment == config.EnvDevelopment {
		level = "Debug"
	}
	if err := log.Init(level); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if err := options.Validate(); err != nil {
		zapLogger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Select the record store: Postgres when a DSN is configured,
	// otherwise the in-memory store (development).
	var (
		records  service.RecordStore
		users    service.UserRepository
		sessions service.SessionRepository
		checker  middleware.SessionChecker
	)
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer func() { _ = postgresDB.Close() }()

		// Purge expired sessions in the background.
		db.StartSessionCleaner(ctx, postgresDB, time.Hour, zapLogger)

		records = repository.NewPostgresRecordStore(postgresDB)
		users = repository.NewPostgresUserRepository(postgresDB)
		sessions = repository.NewPostgresSessionRepository(postgresDB)
	} else {
		zapLogger.Warn("no database DSN configured, using in-memory store")
		records = repository.NewMemoryRecordStore()
		mem := repository.NewMemoryAccountStore()
		users = mem
		sessions = mem
	}

	// Initialize the credential codec and business-logic services.
	codec := auth.NewTokenCodec([]byte(options.SigningKey), options.TokenTTL)
	authService := service.NewAuthService(users, sessions, codec)
	transactionsService := service.NewResourceService(schema.Transactions(), records, options.MaxPageSize)
	uploadsService := service.NewResourceService(schema.Uploads(), records, options.MaxPageSize)
	checker = authService

	// Create HTTP handlers for the route groups.
	authHandler := &http.AuthHandler{AuthService: authService}
	transactionsHandler := &http.ResourceHandler{Service: transactionsService}
	uploadsHandler := &http.ResourceHandler{Service: uploadsService}
	adminHandler := &http.AdminHandler{AdminService: authService}

	// Build the router with middleware and routes. Static hosting is a
	// production concern; verbose request logging a development one.
	staticDir := ""
	if options.Environment == config.EnvProduction {
		staticDir = options.StaticDir
	}
	router := http.NewRouter(authHandler, transactionsHandler, uploadsHandler, adminHandler, http.RouterConfig{
		Verifier:       codec,
		Sessions:       checker,
		Logger:         zapLogger,
		Verbose:        options.Environment == config.EnvDevelopment,
		StaticDir:      staticDir,
		RequestTimeout: 30 * time.Second,
	})

	server := &nethttp.Server{
		Addr:    options.Address,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("starting HTTP server",
			zap.String("addr", options.Address),
			zap.String("environment", options.Environment))
		if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

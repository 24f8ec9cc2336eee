// Package main is the entry point for the printdesk order server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printdesk/internal/authz"
	"printdesk/internal/cart"
	"printdesk/internal/config"
	"printdesk/internal/database"
	"printdesk/internal/handlers"
	"printdesk/internal/mail"
	"printdesk/internal/middleware"
	"printdesk/internal/router"
	"printdesk/internal/storage"
	"printdesk/internal/store"
)

func main() {
	// Structured logger — text output; swap the handler for JSON when a
	// collector is in front.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// The protected super admin must exist before traffic is served —
	// the mutation operations check its flag.
	if err := database.EnsureSuperAdmin(db, cfg.SuperAdminEmail); err != nil {
		slog.Error("failed to ensure super admin", "error", err)
		os.Exit(1)
	}

	// Connect to Valkey (Redis-compatible store for cart staging).
	valkeyClient, err := cart.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	cartStore := cart.NewStore(valkeyClient)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	profileStore := store.NewProfileStore(db)
	orderStore := store.NewOrderStore(db)

	// Connect to S3-compatible object storage (optional — the server runs
	// without it, rejecting document submissions until configured).
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket,
	)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		slog.Info("s3 storage connected",
			"endpoint", cfg.S3Endpoint,
			"bucket", cfg.S3Bucket,
		)
	} else {
		slog.Warn("s3 storage not configured — document uploads disabled")
	}

	// SMTP mailer for order confirmations.
	mailer := mail.NewSMTP(cfg.SMTPAddr(), cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)

	// The access gate re-checks role and block status on every protected
	// request.
	gate := authz.NewGate(userStore, cfg.SuperAdminEmail)

	// Per-client rate limiting across the whole API.
	limiter := middleware.NewRateLimiter(120, time.Minute)
	defer limiter.Stop()

	// Create handler groups with their dependencies.
	var uploader handlers.Uploader
	if storageClient != nil {
		uploader = storageClient
	}
	orderHandlers := handlers.NewOrders(orderStore, uploader, mailer, cfg.OrderInboxEmail)
	userHandlers := handlers.NewUsers(userStore, profileStore, cfg.SuperAdminEmail)
	cartHandlers := handlers.NewCarts(cartStore)

	// Set up the Chi router with all middleware and routes.
	r := router.New(gate, orderHandlers, userHandlers, cartHandlers, limiter)

	// Create the HTTP server with sensible timeouts. ReadTimeout must
	// accommodate multi-file document uploads on slow links.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/infinity8co/booking-mailer/internal/api"
	"github.com/infinity8co/booking-mailer/internal/config"
	"github.com/infinity8co/booking-mailer/internal/confirmation"
	"github.com/infinity8co/booking-mailer/internal/db"
	"github.com/infinity8co/booking-mailer/internal/email"
	"github.com/infinity8co/booking-mailer/internal/payments"
	"github.com/infinity8co/booking-mailer/internal/pdf"
	"github.com/infinity8co/booking-mailer/internal/store"
	"github.com/infinity8co/booking-mailer/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port)

	// ── Database ──────────────────────────────────────────────────────────────
	pool, queries, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// ── Store (conditional mark-sent) ─────────────────────────────────────────
	st := store.New(pool, queries)

	// ── Webhook verification ──────────────────────────────────────────────────
	verifier := payments.NewStripeVerifier()

	// ── Email capability ──────────────────────────────────────────────────────
	// Missing Resend credentials disable sending rather than failing startup:
	// the webhook surface keeps acknowledging events and the workflow logs
	// each skip.
	var mailer email.Sender
	if cfg.EmailConfigured() {
		mailer = email.NewResendClient(cfg.ResendAPIKey, cfg.EmailFromAddr, cfg.EmailFromName)
		logger.Info("email: resend sender configured", "from", cfg.EmailFromAddr)
	} else {
		mailer = email.NewDisabled("resend credentials not set")
		logger.Warn("email: not configured, confirmations will be skipped")
	}

	// ── PDF capability ────────────────────────────────────────────────────────
	var renderer pdf.Renderer
	if cfg.PDFReceipts {
		renderer = pdf.NewReceiptRenderer()
	} else {
		renderer = pdf.NewNop()
		logger.Info("pdf: receipts disabled, emails go out without attachments")
	}

	// ── Confirmation workflow + worker ────────────────────────────────────────
	sender := confirmation.NewSender(queries, st, renderer, mailer, logger)
	runner := worker.NewRunner(sender, queries, worker.RunnerConfig{
		Workers:      cfg.WorkerCount,
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
	}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(
		queries,
		verifier,
		runner, // *Runner satisfies worker.Enqueuer
		api.Config{
			StripeWebhookSecret: cfg.StripeWebhookSecret,
			InternalAPIKey:      cfg.InternalAPIKey,
			Env:                 cfg.Env,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. Worker and HTTP server both respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the worker pool in a background goroutine. It blocks until ctx is done.
	go runner.Start(ctx)

	// Start the HTTP server in a background goroutine.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// The worker goroutine exits when ctx is cancelled (already done).
	logger.Info("shutdown complete")
	return nil
}

// openDB opens the connection pool and validates every query against the live
// schema via db.Prepare — the server refuses to start if the schema is out of
// sync.
func openDB(dsn string) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool.
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	// Verify the connection is reachable before proceeding.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	queries, err := db.Prepare(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("prepare statements: %w", err)
	}

	return pool, queries, nil
}

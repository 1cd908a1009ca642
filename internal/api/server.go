// Package api implements the HTTP surface of the confirmation service: the
// payment-provider webhook, an internal manual-resend trigger, and health.
// Handlers are methods on *Server.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/infinity8co/booking-mailer/internal/db"
	"github.com/infinity8co/booking-mailer/internal/payments"
	"github.com/infinity8co/booking-mailer/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// StripeWebhookSecret is the signing secret from the Stripe dashboard.
	StripeWebhookSecret string

	// InternalAPIKey guards the manual resend endpoint. Empty disables it.
	InternalAPIKey string

	// Env is "production", "staging", or "development".
	Env string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// q handles all single-query reads and the webhook event bookkeeping.
	q db.Querier

	// verifier validates payment-provider webhook signatures.
	verifier payments.Verifier

	// worker enqueues confirmation sends so the webhook response never waits
	// on the email provider.
	worker worker.Enqueuer

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	q db.Querier,
	verifier payments.Verifier,
	enqueuer worker.Enqueuer,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		q:        q,
		verifier: verifier,
		worker:   enqueuer,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		// Stripe webhook — no auth (signature verification inside handler).
		r.Post("/webhooks/stripe", s.handleStripeWebhook)

		// Manual resend — internal callers only.
		r.Group(func(r chi.Router) {
			r.Use(s.requireInternalKey)
			r.Post("/bookings/{bookingID}/confirmation", s.handleResendConfirmation)
		})
	})

	return r
}

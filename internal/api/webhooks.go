package api

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/infinity8co/booking-mailer/internal/payments"
	"github.com/infinity8co/booking-mailer/internal/worker"
)

// ─── POST /api/webhooks/stripe ────────────────────────────────────────────────

// handleStripeWebhook is the entry point for all payment webhook deliveries.
//
// Stripe delivers events at-least-once and may retry on non-2xx responses.
// The handler must be idempotent: the event row insert uses ON CONFLICT DO
// NOTHING, and the confirmation workflow itself guards against duplicate
// sends via the payment sentinel — so replays are safe at both layers.
//
// The only event we act on is payment_intent.succeeded, which triggers the
// booking-confirmation email for the booking named in the PI metadata.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	// ── 1. Read and size-limit the body ───────────────────────────────────────
	// Stripe recommends reading the raw body before any other processing so
	// the signature check runs against the exact bytes Stripe signed.
	r.Body = http.MaxBytesReader(w, r.Body, 65536) // 64 KB — generous for any Stripe event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "could not read request body")
		return
	}

	// ── 2. Verify the Stripe-Signature header ─────────────────────────────────
	sig := r.Header.Get("Stripe-Signature")
	event, err := s.verifier.VerifyWebhook(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Warn("webhook: invalid signature", "error", err, logField(r))
		respondErr(w, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	// ── 3. Idempotency: record the event, skip if already processed ───────────
	// UpsertPaymentEvent uses ON CONFLICT DO NOTHING. When a duplicate
	// event_id is received Postgres returns zero rows, surfaced as
	// sql.ErrNoRows. We treat that as an idempotent success and ack
	// immediately so Stripe stops retrying.
	_, err = s.q.UpsertPaymentEvent(r.Context(), payments.ToUpsertParams(event, payload))
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("webhook: duplicate event, skipping", "event_id", event.ID, logField(r))
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("upsert payment event: %w", err))
		return
	}

	// ── 4. Dispatch by event type ─────────────────────────────────────────────
	var handlerErr error

	switch event.Type {
	case "payment_intent.succeeded":
		handlerErr = s.onPaymentSucceeded(r, event)

	default:
		// Unknown event type — ack immediately so Stripe stops retrying.
		s.logger.Debug("webhook: unhandled event type", "type", event.Type, logField(r))
	}

	// ── 5. Mark event processed (or failed) ───────────────────────────────────
	if handlerErr != nil {
		s.logger.Error("webhook: handler error",
			"event_id", event.ID,
			"type", event.Type,
			"error", handlerErr,
			logField(r),
		)
		// Record the failure in payment_events for operators to investigate.
		_, _ = s.q.MarkPaymentEventFailed(r.Context(), payments.ToMarkFailedParams(event.ID, handlerErr))
		// Return 500 so Stripe retries delivery.
		respondErr(w, http.StatusInternalServerError, "webhook handler failed")
		return
	}

	_, _ = s.q.MarkPaymentEventProcessed(r.Context(), event.ID)
	w.WriteHeader(http.StatusOK)
}

// ─── EVENT HANDLERS ───────────────────────────────────────────────────────────

func (s *Server) onPaymentSucceeded(r *http.Request, event payments.Event) error {
	bookingID, err := payments.ExtractBookingID(event)
	if err != nil {
		// A PI without booking metadata is not ours (e.g. a product purchase
		// from another surface). Ack and move on.
		s.logger.Debug("webhook: payment without booking_id metadata, ignoring",
			"event_id", event.ID,
			logField(r),
		)
		return nil
	}

	// The PI's receipt_email doubles as the fallback recipient for bookings
	// whose owner has no profile email.
	req := worker.Request{
		BookingID:     bookingID,
		FallbackEmail: payments.ExtractReceiptEmail(event),
	}

	if err := s.worker.Enqueue(r.Context(), req); err != nil {
		// Enqueueing failed (queue full) — the poller will pick it up.
		s.logger.Warn("webhook: enqueue failed, will be picked up by poller",
			"booking_id", bookingID,
			"error", err,
			logField(r),
		)
	}

	return nil
}

// Package confirmation implements the booking-confirmation workflow: fetch
// the booking, payment, and profile, build the email content, render the PDF
// receipt, dispatch through the email capability, and mark the payment as
// sent. Every failure path terminates in a log line and an Outcome — nothing
// above this package ever observes an error from Send.
package confirmation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/infinity8co/booking-mailer/internal/db"
	"github.com/infinity8co/booking-mailer/internal/email"
	"github.com/infinity8co/booking-mailer/internal/pdf"
	"github.com/infinity8co/booking-mailer/internal/store"
)

// Outcome says how one invocation of the workflow ended. Failures are
// expressed as outcomes rather than errors so the public contract — the entry
// point never raises — holds by construction, while tests still see exactly
// which path was taken.
type Outcome string

const (
	// OutcomeSent means the email was dispatched. The mark-sent write may
	// still have failed; that is logged as a warning, not reflected here.
	OutcomeSent Outcome = "sent"

	// OutcomeNotConfigured means the email capability is disabled.
	OutcomeNotConfigured Outcome = "not_configured"

	// OutcomeBookingNotFound means no booking row exists for the id. Benign:
	// callers may invoke speculatively after a best-effort booking creation.
	OutcomeBookingNotFound Outcome = "booking_not_found"

	// OutcomeAlreadySent means the payment row carries the sent sentinel.
	OutcomeAlreadySent Outcome = "already_sent"

	// OutcomeNoRecipient means neither a profile email nor a fallback address
	// was available. There is no retry queue for undeliverable confirmations.
	OutcomeNoRecipient Outcome = "no_recipient"

	// OutcomeLookupFailed means a data-store read failed before dispatch.
	OutcomeLookupFailed Outcome = "lookup_failed"

	// OutcomeDispatchFailed means the provider call failed. Single attempt,
	// no retry; the payment row is left unmarked so a later invocation (or
	// the worker's poller) can try again.
	OutcomeDispatchFailed Outcome = "dispatch_failed"
)

// PaymentStore is the slice of *store.Store the workflow needs. Tests inject
// a stub that records calls.
type PaymentStore interface {
	MarkConfirmationSent(ctx context.Context, bookingID string) (db.Payment, error)
}

// Sender runs the workflow. Construct with NewSender; all dependencies are
// injected so tests can substitute fakes for the capabilities.
type Sender struct {
	q        db.Querier
	store    PaymentStore
	renderer pdf.Renderer
	mailer   email.Sender
	logger   *slog.Logger
}

// NewSender constructs a Sender with all required dependencies.
func NewSender(
	q db.Querier,
	st PaymentStore,
	renderer pdf.Renderer,
	mailer email.Sender,
	logger *slog.Logger,
) *Sender {
	return &Sender{
		q:        q,
		store:    st,
		renderer: renderer,
		mailer:   mailer,
		logger:   logger,
	}
}

// Send runs the full workflow for one booking:
//
//  1. Configuration gate — disabled mailer is a logged skip, not a failure.
//  2. Fetch the booking; missing booking is a benign no-op.
//  3. Idempotency check against the payment row's receipt_url sentinel.
//  4. Resolve the recipient: profile email first, then fallbackEmail.
//  5. Build subject and bodies; render the PDF receipt if the capability is
//     enabled, continuing without an attachment if it is not.
//  6. Dispatch. Blocking — callers run this on a worker goroutine.
//  7. After a successful dispatch only, and only when a payment row exists,
//     conditionally write the sent sentinel (preserving payment_status and
//     transaction_id).
//
// Send never returns an error; every path is logged and summarized in the
// returned Outcome.
func (s *Sender) Send(ctx context.Context, bookingID, fallbackEmail string) Outcome {
	log := s.logger.With("booking_id", bookingID)

	// ── 1. Configuration gate ─────────────────────────────────────────────────
	if !s.mailer.Enabled() {
		log.Info("confirmation: email sending not configured, skipping")
		return OutcomeNotConfigured
	}

	// ── 2. Fetch booking ──────────────────────────────────────────────────────
	booking, err := s.q.GetBookingByID(ctx, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("confirmation: booking not found, cannot send")
		return OutcomeBookingNotFound
	}
	if err != nil {
		log.Error("confirmation: load booking failed", "error", err)
		return OutcomeLookupFailed
	}

	// ── 3. Idempotency check ──────────────────────────────────────────────────
	payment, err := s.q.GetPaymentByBooking(ctx, bookingID)
	hasPayment := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Error("confirmation: load payment failed", "error", err)
		return OutcomeLookupFailed
	}
	if hasPayment && payment.ReceiptURL.Valid && payment.ReceiptURL.String == db.ReceiptURLSent {
		log.Debug("confirmation: already sent, skipping")
		return OutcomeAlreadySent
	}

	// ── 4. Recipient resolution ───────────────────────────────────────────────
	var profile db.UserProfile
	if booking.UserID.Valid {
		p, err := s.q.GetUserProfile(ctx, booking.UserID.UUID)
		switch {
		case err == nil:
			profile = p
		case errors.Is(err, sql.ErrNoRows):
			// No profile — fall through to the fallback address.
		default:
			log.Warn("confirmation: load profile failed, using fallback email", "error", err)
		}
	}

	recipient := fallbackEmail
	if profile.Email.Valid && profile.Email.String != "" {
		recipient = profile.Email.String
	}
	if recipient == "" {
		log.Warn("confirmation: no recipient email available, skipping")
		return OutcomeNoRecipient
	}

	// ── 5. Content + receipt ──────────────────────────────────────────────────
	msg := buildMessage(booking, profile, recipient)

	if s.renderer.Enabled() {
		receiptBytes, err := s.renderer.Render(buildReceipt(booking, profile))
		if err != nil {
			// The email must still go out without the attachment.
			log.Warn("confirmation: receipt render failed, sending without attachment", "error", err)
		} else {
			msg.Attachment = &email.Attachment{
				Filename: fmt.Sprintf("booking-%s.pdf", booking.ID),
				Content:  receiptBytes,
			}
		}
	}

	// ── 6. Dispatch ───────────────────────────────────────────────────────────
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Error("confirmation: dispatch failed", "to", recipient, "error", err)
		return OutcomeDispatchFailed
	}
	log.Info("confirmation: email sent", "to", recipient, "attachment", msg.Attachment != nil)

	// ── 7. Mark sent ──────────────────────────────────────────────────────────
	if hasPayment {
		if _, err := s.store.MarkConfirmationSent(ctx, bookingID); err != nil {
			if errors.Is(err, store.ErrConfirmationAlreadySent) {
				// Lost a race with a concurrent invocation. The duplicate email
				// already went out; the row is consistent.
				log.Debug("confirmation: sentinel already written by concurrent send")
			} else {
				// The email is out and is not re-sent because of this
				// bookkeeping failure.
				log.Warn("confirmation: could not mark payment as sent", "error", err)
			}
		}
	}

	return OutcomeSent
}

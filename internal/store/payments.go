package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/infinity8co/booking-mailer/internal/db"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrConfirmationAlreadySent is returned when the payment row already carries
// the sent sentinel. The workflow treats this as a lost race, not a failure:
// another invocation confirmed the same booking first.
var ErrConfirmationAlreadySent = errors.New("store: confirmation already marked sent for booking")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// MarkConfirmationSent writes the db.ReceiptURLSent sentinel onto the payment
// row for bookingID, preserving the existing payment_status and
// transaction_id. The write is conditional: inside a serializable transaction
// the row is re-read, and an already-present sentinel aborts with
// ErrConfirmationAlreadySent instead of overwriting.
//
// Race scenario without this guard:
//  1. Two webhook deliveries for the same booking arrive concurrently.
//  2. Both invocations read the payment, see no sentinel, and send.
//  3. Both then write — a plain update would hide that the race happened.
//
// With serializable isolation the second concurrent transaction sees the
// first commit and hits the already-sent check. The duplicate email itself
// cannot be recalled, but the row ends in a consistent state and the race is
// visible in the logs.
func (s *Store) MarkConfirmationSent(ctx context.Context, bookingID string) (db.Payment, error) {
	var payment db.Payment

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		// Re-read the payment inside the transaction so we see the latest
		// committed state under serializable isolation.
		existing, err := q.GetPaymentByBooking(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("MarkConfirmationSent: get payment: %w", err)
		}

		if existing.ReceiptURL.Valid && existing.ReceiptURL.String == db.ReceiptURLSent {
			payment = existing
			return ErrConfirmationAlreadySent
		}

		updated, err := q.UpdatePaymentStatus(ctx, db.UpdatePaymentStatusParams{
			BookingID:     bookingID,
			PaymentStatus: existing.PaymentStatus,
			TransactionID: existing.TransactionID,
			ReceiptURL: sql.NullString{
				String: db.ReceiptURLSent,
				Valid:  true,
			},
		})
		if err != nil {
			return fmt.Errorf("MarkConfirmationSent: update payment: %w", err)
		}

		payment = updated
		return nil
	})

	// Unwrap the sentinel so callers can check with errors.Is without needing
	// to look inside a wrapped error chain.
	if errors.Is(err, ErrConfirmationAlreadySent) {
		return payment, ErrConfirmationAlreadySent
	}
	if err != nil {
		return db.Payment{}, err
	}

	return payment, nil
}

package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

// UpdatePaymentStatusParams carries every mutable field of a payment row.
// Callers that only want to set the receipt_url sentinel must pass the
// existing payment_status and transaction_id back in so they are preserved.
type UpdatePaymentStatusParams struct {
	BookingID     string
	PaymentStatus string
	TransactionID sql.NullString
	ReceiptURL    sql.NullString
}

// UpsertPaymentEventParams records one webhook delivery.
type UpsertPaymentEventParams struct {
	EventID string
	Type    string
	Payload json.RawMessage
}

// MarkPaymentEventFailedParams records a handler failure for an event.
type MarkPaymentEventFailedParams struct {
	EventID string
	Error   sql.NullString
}

// Querier is the interface handlers, the store, and the worker depend on.
// The concrete implementation is *Queries; tests embed the interface in a
// stub and implement only the methods they exercise.
type Querier interface {
	GetBookingByID(ctx context.Context, id string) (Booking, error)
	GetPaymentByBooking(ctx context.Context, bookingID string) (Payment, error)
	GetUserProfile(ctx context.Context, userID uuid.UUID) (UserProfile, error)
	UpdatePaymentStatus(ctx context.Context, p UpdatePaymentStatusParams) (Payment, error)

	// ListUnconfirmedPayments returns completed payments whose receipt_url is
	// not yet the sent sentinel. The worker's poller uses it to recover
	// confirmations that were in flight when the process last restarted.
	ListUnconfirmedPayments(ctx context.Context) ([]Payment, error)

	// UpsertPaymentEvent inserts with ON CONFLICT DO NOTHING. A duplicate
	// delivery returns sql.ErrNoRows, which callers treat as idempotent
	// success.
	UpsertPaymentEvent(ctx context.Context, p UpsertPaymentEventParams) (PaymentEvent, error)
	MarkPaymentEventProcessed(ctx context.Context, eventID string) (PaymentEvent, error)
	MarkPaymentEventFailed(ctx context.Context, p MarkPaymentEventFailedParams) (PaymentEvent, error)
}

var _ Querier = (*Queries)(nil)

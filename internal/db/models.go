package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// ReceiptURLSent is the sentinel stored in payments.receipt_url once the
// confirmation email for a booking has been delivered. The field otherwise
// holds a provider receipt URL or is NULL. Once the sentinel is written, no
// further confirmation may be sent for that booking.
const ReceiptURLSent = "email_sent"

// Booking is a reservation row joined with its space. Timestamps are stored
// as ISO 8601 strings exactly as received from the booking frontend; the
// confirmation package formats them for display and passes malformed values
// through unchanged. Read-only for this service.
type Booking struct {
	ID             string
	SpaceName      sql.NullString
	SpaceLocation  sql.NullString
	StartTime      sql.NullString
	EndTime        sql.NullString
	AttendeesCount sql.NullInt32
	TotalAmount    sql.NullString // NUMERIC scanned as text; parsed by the formatter
	Status         sql.NullString
	UserID         uuid.NullUUID // auth-provider user id; NULL for guest bookings
}

// Payment is the payment row for a booking.
type Payment struct {
	BookingID     string
	PaymentStatus string
	TransactionID sql.NullString
	ReceiptURL    sql.NullString
	UpdatedAt     time.Time
}

// UserProfile holds the contact details for a registered user.
type UserProfile struct {
	ID       uuid.UUID
	Email    sql.NullString
	FullName sql.NullString
}

// PaymentEvent records one webhook delivery from the payment provider.
// The primary key on event_id makes replays a no-op (ON CONFLICT DO NOTHING).
type PaymentEvent struct {
	EventID     string
	Type        string
	Payload     pqtype.NullRawMessage
	ReceivedAt  time.Time
	ProcessedAt sql.NullTime
	Error       sql.NullString
}

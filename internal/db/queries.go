package db

import (
	"context"

	"github.com/google/uuid"
)

const getBookingByID = `
SELECT b.id,
       s.name      AS space_name,
       s.location  AS space_location,
       b.start_time,
       b.end_time,
       b.attendees_count,
       b.total_amount::text,
       b.status,
       b.user_id
FROM bookings b
LEFT JOIN spaces s ON s.id = b.space_id
WHERE b.id = $1
`

func (q *Queries) GetBookingByID(ctx context.Context, id string) (Booking, error) {
	row := q.db.QueryRowContext(ctx, getBookingByID, id)
	var b Booking
	err := row.Scan(
		&b.ID,
		&b.SpaceName,
		&b.SpaceLocation,
		&b.StartTime,
		&b.EndTime,
		&b.AttendeesCount,
		&b.TotalAmount,
		&b.Status,
		&b.UserID,
	)
	return b, err
}

const getPaymentByBooking = `
SELECT booking_id, payment_status, transaction_id, receipt_url, updated_at
FROM payments
WHERE booking_id = $1
`

func (q *Queries) GetPaymentByBooking(ctx context.Context, bookingID string) (Payment, error) {
	row := q.db.QueryRowContext(ctx, getPaymentByBooking, bookingID)
	var p Payment
	err := row.Scan(&p.BookingID, &p.PaymentStatus, &p.TransactionID, &p.ReceiptURL, &p.UpdatedAt)
	return p, err
}

const getUserProfile = `
SELECT id, email, full_name
FROM user_profiles
WHERE id = $1
`

func (q *Queries) GetUserProfile(ctx context.Context, userID uuid.UUID) (UserProfile, error) {
	row := q.db.QueryRowContext(ctx, getUserProfile, userID)
	var u UserProfile
	err := row.Scan(&u.ID, &u.Email, &u.FullName)
	return u, err
}

const updatePaymentStatus = `
UPDATE payments
SET payment_status = $2,
    transaction_id = $3,
    receipt_url    = $4,
    updated_at     = now()
WHERE booking_id = $1
RETURNING booking_id, payment_status, transaction_id, receipt_url, updated_at
`

func (q *Queries) UpdatePaymentStatus(ctx context.Context, p UpdatePaymentStatusParams) (Payment, error) {
	row := q.db.QueryRowContext(ctx, updatePaymentStatus,
		p.BookingID,
		p.PaymentStatus,
		p.TransactionID,
		p.ReceiptURL,
	)
	var out Payment
	err := row.Scan(&out.BookingID, &out.PaymentStatus, &out.TransactionID, &out.ReceiptURL, &out.UpdatedAt)
	return out, err
}

const listUnconfirmedPayments = `
SELECT booking_id, payment_status, transaction_id, receipt_url, updated_at
FROM payments
WHERE payment_status = 'completed'
  AND (receipt_url IS NULL OR receipt_url <> 'email_sent')
ORDER BY updated_at
LIMIT 100
`

func (q *Queries) ListUnconfirmedPayments(ctx context.Context) ([]Payment, error) {
	rows, err := q.db.QueryContext(ctx, listUnconfirmedPayments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.BookingID, &p.PaymentStatus, &p.TransactionID, &p.ReceiptURL, &p.UpdatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

const upsertPaymentEvent = `
INSERT INTO payment_events (event_id, type, payload, received_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (event_id) DO NOTHING
RETURNING event_id, type, payload, received_at, processed_at, error
`

func (q *Queries) UpsertPaymentEvent(ctx context.Context, p UpsertPaymentEventParams) (PaymentEvent, error) {
	row := q.db.QueryRowContext(ctx, upsertPaymentEvent, p.EventID, p.Type, []byte(p.Payload))
	var e PaymentEvent
	err := row.Scan(&e.EventID, &e.Type, &e.Payload, &e.ReceivedAt, &e.ProcessedAt, &e.Error)
	return e, err
}

const markPaymentEventProcessed = `
UPDATE payment_events
SET processed_at = now(), error = NULL
WHERE event_id = $1
RETURNING event_id, type, payload, received_at, processed_at, error
`

func (q *Queries) MarkPaymentEventProcessed(ctx context.Context, eventID string) (PaymentEvent, error) {
	row := q.db.QueryRowContext(ctx, markPaymentEventProcessed, eventID)
	var e PaymentEvent
	err := row.Scan(&e.EventID, &e.Type, &e.Payload, &e.ReceivedAt, &e.ProcessedAt, &e.Error)
	return e, err
}

const markPaymentEventFailed = `
UPDATE payment_events
SET error = $2
WHERE event_id = $1
RETURNING event_id, type, payload, received_at, processed_at, error
`

func (q *Queries) MarkPaymentEventFailed(ctx context.Context, p MarkPaymentEventFailedParams) (PaymentEvent, error) {
	row := q.db.QueryRowContext(ctx, markPaymentEventFailed, p.EventID, p.Error)
	var e PaymentEvent
	err := row.Scan(&e.EventID, &e.Type, &e.Payload, &e.ReceivedAt, &e.ProcessedAt, &e.Error)
	return e, err
}

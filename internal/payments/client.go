// Package payments defines webhook verification for the payment provider and
// helpers for pulling booking fields out of verified events. Checkout and
// charge creation live in the booking backend — this service only consumes
// payment events.
package payments

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/infinity8co/booking-mailer/internal/db"
)

// Event is a parsed provider webhook event. DataRaw contains the raw JSON of
// the event's data.object so callers unmarshal only what they need.
type Event struct {
	ID      string
	Type    string
	DataRaw json.RawMessage
}

// Verifier validates webhook deliveries. The concrete implementation wraps
// the official stripe-go SDK. Tests inject a stub.
type Verifier interface {
	// VerifyWebhook validates the Stripe-Signature header and returns the
	// parsed event. Returns an error if the signature is invalid or expired.
	VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error)
}

// ─── HELPERS USED BY api/ ────────────────────────────────────────────────────

// ToUpsertParams converts a parsed Event and its raw payload into the params
// needed by db.Querier.UpsertPaymentEvent.
func ToUpsertParams(event Event, rawPayload []byte) db.UpsertPaymentEventParams {
	return db.UpsertPaymentEventParams{
		EventID: event.ID,
		Type:    event.Type,
		Payload: json.RawMessage(rawPayload),
	}
}

// ToMarkFailedParams builds the params for db.Querier.MarkPaymentEventFailed.
func ToMarkFailedParams(eventID string, err error) db.MarkPaymentEventFailedParams {
	return db.MarkPaymentEventFailedParams{
		EventID: eventID,
		Error:   sql.NullString{String: err.Error(), Valid: true},
	}
}

// ExtractBookingID pulls the booking_id metadata field from the event's
// data.object. The booking backend stamps it onto every PaymentIntent it
// creates; a PI without it does not belong to a booking.
func ExtractBookingID(event Event) (string, error) {
	var obj struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(event.DataRaw, &obj); err != nil {
		return "", fmt.Errorf("payments: unmarshal event object: %w", err)
	}
	id := obj.Metadata["booking_id"]
	if id == "" {
		return "", fmt.Errorf("payments: no booking_id metadata on event %s", event.ID)
	}
	return id, nil
}

// ExtractReceiptEmail pulls the receipt_email field from the event's
// data.object. May be empty — it is only a fallback recipient for bookings
// whose owner has no profile email.
func ExtractReceiptEmail(event Event) string {
	var obj struct {
		ReceiptEmail string `json:"receipt_email"`
	}
	if err := json.Unmarshal(event.DataRaw, &obj); err != nil {
		return ""
	}
	return obj.ReceiptEmail
}

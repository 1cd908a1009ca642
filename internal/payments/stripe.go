package payments

import (
	"fmt"

	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeVerifier is the concrete Verifier backed by the official stripe-go
// SDK. Construct it with NewStripeVerifier.
type stripeVerifier struct{}

// NewStripeVerifier returns a Verifier using Stripe signature checking.
// No API key is needed — verification only uses the webhook signing secret
// passed per call.
func NewStripeVerifier() Verifier {
	return &stripeVerifier{}
}

// VerifyWebhook validates the Stripe-Signature header and returns the parsed
// event. Returns an error if the signature is invalid or the tolerance window
// (300 seconds by default in the Stripe SDK) has expired.
func (v *stripeVerifier) VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return Event{}, fmt.Errorf("payments: webhook verification failed: %w", err)
	}

	return Event{
		ID:      stripeEvent.ID,
		Type:    string(stripeEvent.Type),
		DataRaw: stripeEvent.Data.Raw,
	}, nil
}

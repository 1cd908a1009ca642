package email

import (
	"context"
	"fmt"
)

// disabledSender is the null implementation selected at startup when Resend
// credentials are absent. Every Send returns ErrNotConfigured.
type disabledSender struct {
	reason string
}

// NewDisabled returns a Sender that reports itself unavailable. reason is
// surfaced in the error for log lines.
func NewDisabled(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (d *disabledSender) Enabled() bool { return false }

func (d *disabledSender) Send(_ context.Context, _ Message) error {
	return fmt.Errorf("%w: %s", ErrNotConfigured, d.reason)
}

// Package email defines the capability interface for transactional email
// delivery and provides a Resend-backed implementation plus a disabled no-op.
// The workflow checks Enabled before doing any work, so a deployment without
// Resend credentials degrades to logged skips instead of failing.
package email

import (
	"context"
	"errors"
)

// Attachment is a file attached to an outgoing message. Content is the raw
// bytes; the transport base64-encodes them on the wire.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is one outgoing email. HTML may be empty, in which case only the
// plaintext part is sent. Attachment is optional.
type Message struct {
	To         string
	Subject    string
	Text       string
	HTML       string
	Attachment *Attachment
}

// ErrNotConfigured is returned by a disabled Sender. Callers translate it
// into a logged skip — it must never propagate past the workflow entry point.
var ErrNotConfigured = errors.New("email: sender not configured")

// Sender is the capability interface the confirmation workflow uses.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// Enabled reports whether this sender can actually deliver. The workflow
	// uses it as its configuration gate before touching the data store.
	Enabled() bool

	// Send delivers the message. It blocks for the duration of the provider
	// call, so callers invoke it from a worker goroutine, never on the
	// request path.
	Send(ctx context.Context, msg Message) error
}

package confirmation_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/infinity8co/booking-mailer/internal/confirmation"
	"github.com/infinity8co/booking-mailer/internal/db"
	"github.com/infinity8co/booking-mailer/internal/email"
	"github.com/infinity8co/booking-mailer/internal/pdf"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubQuerier satisfies db.Querier with in-memory state.
// Fields may be set per-test to control behaviour.
type stubQuerier struct {
	db.Querier // embedded to panic on unimplemented methods

	bookings map[string]db.Booking
	payments map[string]db.Payment
	profiles map[uuid.UUID]db.UserProfile

	bookingErr error
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{
		bookings: make(map[string]db.Booking),
		payments: make(map[string]db.Payment),
		profiles: make(map[uuid.UUID]db.UserProfile),
	}
}

func (q *stubQuerier) GetBookingByID(_ context.Context, id string) (db.Booking, error) {
	if q.bookingErr != nil {
		return db.Booking{}, q.bookingErr
	}
	b, ok := q.bookings[id]
	if !ok {
		return db.Booking{}, sql.ErrNoRows
	}
	return b, nil
}

func (q *stubQuerier) GetPaymentByBooking(_ context.Context, bookingID string) (db.Payment, error) {
	p, ok := q.payments[bookingID]
	if !ok {
		return db.Payment{}, sql.ErrNoRows
	}
	return p, nil
}

func (q *stubQuerier) GetUserProfile(_ context.Context, userID uuid.UUID) (db.UserProfile, error) {
	u, ok := q.profiles[userID]
	if !ok {
		return db.UserProfile{}, sql.ErrNoRows
	}
	return u, nil
}

// stubStore records MarkConfirmationSent calls.
type stubStore struct {
	calls   []string
	markErr error
}

func (s *stubStore) MarkConfirmationSent(_ context.Context, bookingID string) (db.Payment, error) {
	s.calls = append(s.calls, bookingID)
	if s.markErr != nil {
		return db.Payment{}, s.markErr
	}
	return db.Payment{
		BookingID:  bookingID,
		ReceiptURL: sql.NullString{String: db.ReceiptURLSent, Valid: true},
	}, nil
}

// stubMailer records sent messages without hitting the network.
type stubMailer struct {
	enabled bool
	sendErr error
	sent    []email.Message
}

func (m *stubMailer) Enabled() bool { return m.enabled }

func (m *stubMailer) Send(_ context.Context, msg email.Message) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

// stubRenderer returns fixed bytes.
type stubRenderer struct {
	enabled bool
	out     []byte
	err     error
	calls   int
}

func (r *stubRenderer) Enabled() bool { return r.enabled }

func (r *stubRenderer) Render(pdf.Receipt) ([]byte, error) {
	r.calls++
	return r.out, r.err
}

// ─── FIXTURES ─────────────────────────────────────────────────────────────────

var annID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// seedSkyLoft installs booking "B1" with Ann's profile: Sky Loft in KL,
// 2024-01-01 10:00–12:00 UTC, 4 attendees, RM150.50.
func seedSkyLoft(q *stubQuerier) {
	q.bookings["B1"] = db.Booking{
		ID:             "B1",
		SpaceName:      sql.NullString{String: "Sky Loft", Valid: true},
		SpaceLocation:  sql.NullString{String: "KL", Valid: true},
		StartTime:      sql.NullString{String: "2024-01-01T10:00:00Z", Valid: true},
		EndTime:        sql.NullString{String: "2024-01-01T12:00:00Z", Valid: true},
		AttendeesCount: sql.NullInt32{Int32: 4, Valid: true},
		TotalAmount:    sql.NullString{String: "150.5", Valid: true},
		Status:         sql.NullString{String: "confirmed", Valid: true},
		UserID:         uuid.NullUUID{UUID: annID, Valid: true},
	}
	q.profiles[annID] = db.UserProfile{
		ID:       annID,
		Email:    sql.NullString{String: "a@x.com", Valid: true},
		FullName: sql.NullString{String: "Ann", Valid: true},
	}
}

func newSender(q *stubQuerier, st *stubStore, r *stubRenderer, m *stubMailer) *confirmation.Sender {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return confirmation.NewSender(q, st, r, m, logger)
}

// ─── TESTS ────────────────────────────────────────────────────────────────────

func TestSend_HappyPath(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)
	st := &stubStore{}
	renderer := &stubRenderer{enabled: true, out: []byte("%PDF-stub")}
	mailer := &stubMailer{enabled: true}

	outcome := newSender(q, st, renderer, mailer).Send(context.Background(), "B1", "")

	if outcome != confirmation.OutcomeSent {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeSent)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(mailer.sent))
	}

	msg := mailer.sent[0]
	if msg.To != "a@x.com" {
		t.Errorf("recipient = %q, want %q", msg.To, "a@x.com")
	}
	wantSubject := "Booking confirmed: Sky Loft on January 01, 2024 10:00 AM"
	if msg.Subject != wantSubject {
		t.Errorf("subject = %q, want %q", msg.Subject, wantSubject)
	}
	if !strings.Contains(msg.Text, "Hi Ann,") {
		t.Errorf("body missing greeting:\n%s", msg.Text)
	}
	if !strings.Contains(msg.Text, "- Amount: RM150.50") {
		t.Errorf("body missing formatted amount:\n%s", msg.Text)
	}
	if !strings.Contains(msg.Text, "- Ends: January 01, 2024 12:00 PM") {
		t.Errorf("body missing end time:\n%s", msg.Text)
	}
	if msg.Attachment == nil {
		t.Fatal("expected PDF attachment")
	}
	if msg.Attachment.Filename != "booking-B1.pdf" {
		t.Errorf("attachment filename = %q", msg.Attachment.Filename)
	}

	// No payment row exists, so no mark-sent write may happen.
	if len(st.calls) != 0 {
		t.Errorf("mark-sent calls = %d, want 0 (no payment row)", len(st.calls))
	}
}

func TestSend_AlreadySent_SkipsDispatch(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)
	q.payments["B1"] = db.Payment{
		BookingID:     "B1",
		PaymentStatus: "completed",
		ReceiptURL:    sql.NullString{String: db.ReceiptURLSent, Valid: true},
	}
	st := &stubStore{}
	mailer := &stubMailer{enabled: true}
	renderer := &stubRenderer{enabled: true}

	outcome := newSender(q, st, renderer, mailer).Send(context.Background(), "B1", "")

	if outcome != confirmation.OutcomeAlreadySent {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeAlreadySent)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("dispatch calls = %d, want 0", len(mailer.sent))
	}
	if renderer.calls != 0 {
		t.Errorf("render calls = %d, want 0", renderer.calls)
	}
	if len(st.calls) != 0 {
		t.Errorf("mark-sent calls = %d, want 0", len(st.calls))
	}
}

func TestSend_PaymentWithRealReceiptURL_StillSends(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)
	q.payments["B1"] = db.Payment{
		BookingID:     "B1",
		PaymentStatus: "completed",
		TransactionID: sql.NullString{String: "txn_1", Valid: true},
		ReceiptURL:    sql.NullString{String: "https://pay.example/receipt/1", Valid: true},
	}
	st := &stubStore{}
	mailer := &stubMailer{enabled: true}

	outcome := newSender(q, st, &stubRenderer{}, mailer).Send(context.Background(), "B1", "")

	if outcome != confirmation.OutcomeSent {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeSent)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(mailer.sent))
	}
	if len(st.calls) != 1 || st.calls[0] != "B1" {
		t.Fatalf("mark-sent calls = %v, want exactly one for B1", st.calls)
	}
}

func TestSend_NoRecipient_SkipsDispatch(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)
	delete(q.profiles, annID) // no profile, and no fallback below

	mailer := &stubMailer{enabled: true}
	outcome := newSender(q, &stubStore{}, &stubRenderer{}, mailer).Send(context.Background(), "B1", "")

	if outcome != confirmation.OutcomeNoRecipient {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeNoRecipient)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("dispatch calls = %d, want 0", len(mailer.sent))
	}
}

func TestSend_FallbackEmailUsed(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)
	delete(q.profiles, annID)

	mailer := &stubMailer{enabled: true}
	outcome := newSender(q, &stubStore{}, &stubRenderer{}, mailer).Send(context.Background(), "B1", "fallback@x.com")

	if outcome != confirmation.OutcomeSent {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeSent)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "fallback@x.com" {
		t.Fatalf("expected one dispatch to fallback@x.com, got %+v", mailer.sent)
	}
	// Without a profile the greeting falls back too.
	if !strings.Contains(mailer.sent[0].Text, "Hi there,") {
		t.Errorf("body missing fallback greeting:\n%s", mailer.sent[0].Text)
	}
}

func TestSend_ProfileEmailWinsOverFallback(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)

	mailer := &stubMailer{enabled: true}
	newSender(q, &stubStore{}, &stubRenderer{}, mailer).Send(context.Background(), "B1", "fallback@x.com")

	if len(mailer.sent) != 1 || mailer.sent[0].To != "a@x.com" {
		t.Fatalf("expected dispatch to profile email, got %+v", mailer.sent)
	}
}

func TestSend_DispatchFailure_NoMarkSent(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)
	q.payments["B1"] = db.Payment{BookingID: "B1", PaymentStatus: "completed"}

	st := &stubStore{}
	mailer := &stubMailer{enabled: true, sendErr: errors.New("provider rejected")}

	outcome := newSender(q, st, &stubRenderer{}, mailer).Send(context.Background(), "B1", "")

	if outcome != confirmation.OutcomeDispatchFailed {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeDispatchFailed)
	}
	if len(st.calls) != 0 {
		t.Errorf("mark-sent calls = %d, want 0 after failed dispatch", len(st.calls))
	}
}

func TestSend_RendererDisabled_SendsWithoutAttachment(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)

	mailer := &stubMailer{enabled: true}
	renderer := &stubRenderer{enabled: false}

	outcome := newSender(q, &stubStore{}, renderer, mailer).Send(context.Background(), "B1", "")

	if outcome != confirmation.OutcomeSent {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeSent)
	}
	if renderer.calls != 0 {
		t.Errorf("render calls = %d, want 0 when disabled", renderer.calls)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(mailer.sent))
	}
	if mailer.sent[0].Attachment != nil {
		t.Error("expected no attachment when renderer is disabled")
	}
}

func TestSend_RenderFailure_SendsWithoutAttachment(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)

	mailer := &stubMailer{enabled: true}
	renderer := &stubRenderer{enabled: true, err: errors.New("font missing")}

	outcome := newSender(q, &stubStore{}, renderer, mailer).Send(context.Background(), "B1", "")

	if outcome != confirmation.OutcomeSent {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeSent)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].Attachment != nil {
		t.Fatalf("expected one attachment-less dispatch, got %+v", mailer.sent)
	}
}

func TestSend_MailerDisabled_TouchesNothing(t *testing.T) {
	q := newStubQuerier() // no fixtures: any query would panic via the embedded nil Querier
	mailer := &stubMailer{enabled: false}

	outcome := newSender(q, &stubStore{}, &stubRenderer{}, mailer).Send(context.Background(), "B1", "")

	if outcome != confirmation.OutcomeNotConfigured {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeNotConfigured)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("dispatch calls = %d, want 0", len(mailer.sent))
	}
}

func TestSend_BookingMissing(t *testing.T) {
	q := newStubQuerier()
	mailer := &stubMailer{enabled: true}

	outcome := newSender(q, &stubStore{}, &stubRenderer{}, mailer).Send(context.Background(), "nope", "")

	if outcome != confirmation.OutcomeBookingNotFound {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeBookingNotFound)
	}
	if len(mailer.sent) != 0 {
		t.Errorf("dispatch calls = %d, want 0", len(mailer.sent))
	}
}

func TestSend_MarkSentFailure_StillReportsSent(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)
	q.payments["B1"] = db.Payment{BookingID: "B1", PaymentStatus: "completed"}

	st := &stubStore{markErr: errors.New("db down")}
	mailer := &stubMailer{enabled: true}

	outcome := newSender(q, st, &stubRenderer{}, mailer).Send(context.Background(), "B1", "")

	// The email went out; the bookkeeping failure is a warning, not a result.
	if outcome != confirmation.OutcomeSent {
		t.Fatalf("outcome = %q, want %q", outcome, confirmation.OutcomeSent)
	}
	if len(st.calls) != 1 {
		t.Errorf("mark-sent calls = %d, want 1", len(st.calls))
	}
}

func TestSend_EmptySpaceName_SubjectFallsBack(t *testing.T) {
	q := newStubQuerier()
	seedSkyLoft(q)
	b := q.bookings["B1"]
	b.SpaceName = sql.NullString{}
	q.bookings["B1"] = b

	mailer := &stubMailer{enabled: true}
	newSender(q, &stubStore{}, &stubRenderer{}, mailer).Send(context.Background(), "B1", "")

	if len(mailer.sent) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(mailer.sent))
	}
	want := "Booking confirmed: Your space on January 01, 2024 10:00 AM"
	if got := mailer.sent[0].Subject; got != want {
		t.Fatalf("subject = %q, want %q", got, want)
	}
}

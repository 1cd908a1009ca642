// Package pdf renders the one-page booking receipt attached to confirmation
// emails. Rendering is a capability: the workflow checks Enabled and sends
// the email without an attachment when rendering is switched off or fails.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Receipt carries the pre-formatted display values for one booking. Fields
// left empty are omitted from the summary block entirely — no dangling
// "Label:" lines.
type Receipt struct {
	BookingID   string
	GuestName   string
	GuestEmail  string
	SpaceName   string
	Location    string
	StartLabel  string
	EndLabel    string
	Attendees   string
	AmountLabel string // e.g. "RM150.50"
	Status      string
}

// Renderer is the capability interface for receipt generation.
type Renderer interface {
	Enabled() bool

	// Render produces the PDF bytes for one receipt.
	Render(r Receipt) ([]byte, error)
}

// receiptRenderer builds the receipt with gofpdf.
type receiptRenderer struct{}

// NewReceiptRenderer returns the gofpdf-backed Renderer.
func NewReceiptRenderer() Renderer {
	return &receiptRenderer{}
}

func (rr *receiptRenderer) Enabled() bool { return true }

// Render lays out a title, a labeled summary block, and a closing note on a
// single A4 page.
func (rr *receiptRenderer) Render(r Receipt) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 12, "Booking Confirmation", "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 11)
	doc.Ln(4)

	summary := []struct {
		label, value string
	}{
		{"Booking ID", r.BookingID},
		{"Guest", r.GuestName},
		{"Email", r.GuestEmail},
		{"Space", r.SpaceName},
		{"Location", r.Location},
		{"Date", r.StartLabel},
		{"End", r.EndLabel},
		{"Attendees", r.Attendees},
		{"Total Paid", r.AmountLabel},
		{"Status", r.Status},
	}

	for _, line := range summary {
		if line.value == "" {
			continue
		}
		doc.MultiCell(0, 8, fmt.Sprintf("%s: %s", line.label, line.value), "", "L", false)
	}

	doc.Ln(6)
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 6,
		"Thank you for choosing Infinity8. Please present this confirmation upon arrival.",
		"", "L", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

package confirmation

import (
	"fmt"
	"strings"

	"github.com/infinity8co/booking-mailer/internal/db"
	"github.com/infinity8co/booking-mailer/internal/email"
	"github.com/infinity8co/booking-mailer/internal/pdf"
)

// defaultLocation is used when a space row has no location set.
const defaultLocation = "Kuala Lumpur"

// buildMessage constructs the subject and both bodies for one confirmation.
// The HTML body is the plaintext with line breaks — no templating engine.
func buildMessage(booking db.Booking, profile db.UserProfile, recipient string) email.Message {
	spaceName := booking.SpaceName.String
	subjectSpace := spaceName
	if subjectSpace == "" {
		subjectSpace = "Your space"
	}

	startLabel := FormatTimestamp(booking.StartTime.String)
	subject := fmt.Sprintf("Booking confirmed: %s on %s", subjectSpace, startLabel)

	greeting := profile.FullName.String
	if greeting == "" {
		greeting = "there"
	}

	location := booking.SpaceLocation.String
	if location == "" {
		location = defaultLocation
	}

	bodyLines := []string{
		fmt.Sprintf("Hi %s,", greeting),
		"",
		"Your booking is confirmed. Details:",
		fmt.Sprintf("- Space: %s", spaceName),
		fmt.Sprintf("- Location: %s", location),
		fmt.Sprintf("- Starts: %s", startLabel),
		fmt.Sprintf("- Ends: %s", FormatTimestamp(booking.EndTime.String)),
		fmt.Sprintf("- Attendees: %s", attendeesLabel(booking)),
		fmt.Sprintf("- Amount: %s", FormatAmount(booking.TotalAmount)),
		"",
		"The confirmation PDF is attached. We look forward to hosting you!",
		"",
		"-- Infinity8 Team",
	}
	body := strings.Join(bodyLines, "\n")

	return email.Message{
		To:      recipient,
		Subject: subject,
		Text:    body,
		HTML:    strings.Join(bodyLines, "<br>"),
	}
}

// buildReceipt maps the booking and profile onto the renderer's display
// fields, applying the same defaults the email body uses. Empty fields are
// omitted by the renderer.
func buildReceipt(booking db.Booking, profile db.UserProfile) pdf.Receipt {
	guest := profile.FullName.String
	if guest == "" {
		guest = profile.Email.String
	}
	if guest == "" {
		guest = "Guest"
	}

	location := booking.SpaceLocation.String
	if location == "" {
		location = defaultLocation
	}

	status := capitalize(booking.Status.String)
	if status == "" {
		status = "Confirmed"
	}

	return pdf.Receipt{
		BookingID:   booking.ID,
		GuestName:   guest,
		GuestEmail:  profile.Email.String,
		SpaceName:   booking.SpaceName.String,
		Location:    location,
		StartLabel:  FormatTimestamp(booking.StartTime.String),
		EndLabel:    FormatTimestamp(booking.EndTime.String),
		Attendees:   attendeesLabel(booking),
		AmountLabel: FormatAmount(booking.TotalAmount),
		Status:      status,
	}
}

func attendeesLabel(booking db.Booking) string {
	if !booking.AttendeesCount.Valid {
		return ""
	}
	return fmt.Sprintf("%d", booking.AttendeesCount.Int32)
}

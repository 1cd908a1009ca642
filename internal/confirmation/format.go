package confirmation

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Bookings arrive with RFC 3339 strings
// ("2024-01-01T10:00:00Z" or with a numeric offset); the timezone-less form
// shows up in rows imported from the old backend.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// displayLayout renders "January 01, 2024 10:00 AM".
const displayLayout = "January 02, 2006 03:04 PM"

// FormatTimestamp converts a stored ISO 8601 string into a human-readable
// label. A string that parses under none of the accepted layouts is returned
// unchanged — a garbled timestamp in an email beats a dropped confirmation.
func FormatTimestamp(iso string) string {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format(displayLayout)
		}
	}
	return iso
}

// FormatAmount renders a nullable numeric string as Malaysian Ringgit with
// two decimal places. Absent, empty, and unparseable values all default to
// zero, so every email and receipt shows a concrete amount.
func FormatAmount(amount sql.NullString) string {
	value := 0.0
	if amount.Valid {
		if f, err := strconv.ParseFloat(strings.TrimSpace(amount.String), 64); err == nil {
			value = f
		}
	}
	return fmt.Sprintf("RM%.2f", value)
}

// capitalize upper-cases the first byte of an ASCII status word.
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

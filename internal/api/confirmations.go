package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/infinity8co/booking-mailer/internal/worker"
)

// ─── POST /api/bookings/{bookingID}/confirmation ──────────────────────────────

// resendRequest is the optional body for a manual resend. fallback_email is
// used only when the booking's owner has no profile email.
type resendRequest struct {
	FallbackEmail string `json:"fallback_email"`
}

// handleResendConfirmation lets support staff re-trigger a confirmation for a
// booking. The workflow's sentinel check makes this safe to call for bookings
// that were already confirmed — it becomes a no-op.
func (s *Server) handleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	if bookingID == "" {
		respondErr(w, http.StatusBadRequest, "missing booking id")
		return
	}

	var body resendRequest
	if r.ContentLength != 0 {
		if !decode(w, r, &body) {
			return
		}
	}

	req := worker.Request{
		BookingID:     bookingID,
		FallbackEmail: body.FallbackEmail,
	}
	if err := s.worker.Enqueue(r.Context(), req); err != nil {
		s.logger.Warn("resend: enqueue failed, will be picked up by poller",
			"booking_id", bookingID,
			"error", err,
			logField(r),
		)
	}

	respond(w, http.StatusAccepted, map[string]string{
		"status":     "queued",
		"booking_id": bookingID,
	})
}

package calendar

import (
	"context"
	"time"

	"inkflow/models"
	"inkflow/services/arbiter"
	"inkflow/services/validation"
)

// Bookings routes booking creation through the slot arbiter so two
// conversations cannot confirm the same opening. Reads and the
// cancel/reschedule paths go straight to the calendar.
type Bookings struct {
	*Service
	Arbiter *arbiter.Arbiter
}

func NewBookings(svc *Service, arb *arbiter.Arbiter) *Bookings {
	return &Bookings{Service: svc, Arbiter: arb}
}

// CreateBooking takes (or refreshes) the hold for the requested slot
// and confirms it into a calendar event. A slot held by another
// conversation or filled since it was suggested surfaces as
// arbiter.ErrSlotUnavailable.
func (b *Bookings) CreateBooking(ctx context.Context, req models.BookingRequest) (string, error) {
	durationHours, err := validation.Duration(req.DurationHours, req.TattooPrice)
	if err != nil {
		return "", err
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, b.Loc)
	if err != nil {
		return "", &validation.Error{Field: "booking time", Reason: "does not match YYYY-MM-DD HH:MM"}
	}
	end := start.Add(time.Duration(durationHours * float64(time.Hour)))

	free, err := b.Arbiter.CheckAvailability(ctx, start, end.Sub(start))
	if err != nil {
		return "", err
	}
	if !free {
		return "", arbiter.ErrSlotUnavailable
	}

	token, err := b.Arbiter.RequestHold(ctx, models.SlotKey(start), req.UserID, 0)
	if err != nil {
		return "", err
	}
	return b.Arbiter.Confirm(ctx, token, req.UserID, req)
}

// Package calendar adapts the studio's Google Calendar into booking
// operations: availability scans, bookings, lookups, cancellations and
// reschedules. The calendar is the system of record; only transient slot
// holds live elsewhere.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"

	"inkflow/models"
	"inkflow/services/validation"
	"inkflow/utils"
)

// SlotHolds is the hold-side view the availability scan needs. Satisfied
// by the slot arbiter.
type SlotHolds interface {
	RequestHold(ctx context.Context, slotKey, holder string, ttl time.Duration) (string, error)
	HeldByOther(ctx context.Context, slotKey, holder string) (bool, error)
}

// Booking is one confirmed appointment read back from the calendar.
type Booking struct {
	EventID     string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Service implements booking operations on top of EventsAPI.
type Service struct {
	Events  EventsAPI
	Holds   SlotHolds
	Logger  *zap.Logger
	Loc     *time.Location
	HoldTTL time.Duration

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewService(events EventsAPI, holds SlotHolds, logger *zap.Logger, loc *time.Location, holdTTL time.Duration) *Service {
	return &Service{
		Events:  events,
		Holds:   holds,
		Logger:  logger,
		Loc:     loc,
		HoldTTL: holdTTL,
		Now:     time.Now,
	}
}

// eventWindow is a busy interval in studio-local time.
type eventWindow struct {
	start time.Time
	end   time.Time
}

// localWindows converts timed events to studio-local intervals. All-day
// events carry no dateTime and do not block slots.
func (s *Service) localWindows(events []*gcal.Event) []eventWindow {
	out := make([]eventWindow, 0, len(events))
	for _, ev := range events {
		if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" || ev.End.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, ev.End.DateTime)
		if err != nil {
			continue
		}
		out = append(out, eventWindow{start: start.In(s.Loc), end: end.In(s.Loc)})
	}
	return out
}

// overlapCount returns how many busy intervals intersect [start, end).
func overlapCount(windows []eventWindow, start, end time.Time) int {
	n := 0
	for _, w := range windows {
		if w.start.Before(end) && start.Before(w.end) {
			n++
		}
	}
	return n
}

// AvailableSlots scans the requested date range for bookable openings.
// The studio runs two artists, so a slot stays open until two events
// overlap it. Slots already held by another conversation are skipped,
// and holds are placed on the slots actually suggested.
func (s *Service) AvailableSlots(ctx context.Context, q models.AvailabilityQuery) ([]models.AvailableSlot, error) {
	durationHours, err := validation.Duration(q.DurationHours, q.TattooPrice)
	if err != nil {
		return nil, err
	}
	duration := time.Duration(durationHours * float64(time.Hour))

	startDate, err := time.ParseInLocation("2006-01-02", q.StartDate, s.Loc)
	if err != nil {
		return nil, &validation.Error{Field: "start date", Reason: "does not match YYYY-MM-DD"}
	}
	endDate := startDate
	if q.EndDate != "" {
		endDate, err = time.ParseInLocation("2006-01-02", q.EndDate, s.Loc)
		if err != nil {
			return nil, &validation.Error{Field: "end date", Reason: "does not match YYYY-MM-DD"}
		}
	}

	timeMin := startDate
	timeMax := endDate.AddDate(0, 0, 1)
	events, err := s.Events.List(ctx, timeMin, timeMax, "")
	if err != nil {
		s.Logger.Error("availability scan failed", zap.Error(err))
		return nil, utils.NewServiceError("calendar", err)
	}
	windows := s.localWindows(events)

	var available []models.AvailableSlot
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Sunday {
			continue
		}

		openHour, openMinute := utils.BusinessHoursStart, 0
		if q.PreferredTime != "" && day.Equal(startDate) {
			if pref, perr := time.Parse("15:04", q.PreferredTime); perr == nil {
				if pref.Hour() >= utils.BusinessHoursEnd {
					// No slots possible at or after the preferred time today.
					continue
				}
				if pref.Hour() >= utils.BusinessHoursStart {
					openHour, openMinute = pref.Hour(), pref.Minute()
				}
			}
		}

		slot := time.Date(day.Year(), day.Month(), day.Day(), openHour, openMinute, 0, 0, s.Loc)
		close := time.Date(day.Year(), day.Month(), day.Day(), utils.BusinessHoursEnd, 0, 0, 0, s.Loc)

		for !slot.Add(duration).After(close) {
			if overlapCount(windows, slot, slot.Add(duration)) < 2 {
				heldByOther := false
				if q.UserID != "" {
					heldByOther, err = s.Holds.HeldByOther(ctx, models.SlotKey(slot), q.UserID)
					if err != nil {
						s.Logger.Warn("hold lookup failed", zap.String("slot", models.SlotKey(slot)), zap.Error(err))
						heldByOther = false
					}
				}
				if !heldByOther {
					available = append(available, models.AvailableSlot{
						Date:      slot.Format("2006-01-02"),
						StartTime: slot.Format("15:04"),
						Start:     slot,
					})
				}
			}
			slot = slot.Add(time.Hour)
		}
	}

	if len(available) > utils.MaxSuggestedSlots {
		available = available[:utils.MaxSuggestedSlots]
	}

	// Reserve what we are about to suggest so parallel conversations do
	// not get offered the same openings.
	if q.UserID != "" {
		for _, slot := range available {
			if _, herr := s.Holds.RequestHold(ctx, models.SlotKey(slot.Start), q.UserID, s.HoldTTL); herr != nil {
				s.Logger.Warn("could not hold suggested slot",
					zap.String("slot", models.SlotKey(slot.Start)), zap.Error(herr))
			}
		}
	}

	return available, nil
}

// HasConflict reports whether [start, end) already has two overlapping
// events, which with two artists means the slot is full.
func (s *Service) HasConflict(ctx context.Context, start, end time.Time) (bool, error) {
	day := start.In(s.Loc)
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.Loc)
	events, err := s.Events.List(ctx, dayStart, dayStart.AddDate(0, 0, 1), "")
	if err != nil {
		return false, utils.NewServiceError("calendar", err)
	}
	return overlapCount(s.localWindows(events), start.In(s.Loc), end.In(s.Loc)) >= 2, nil
}

// CreateBooking inserts a confirmed appointment and returns its event ID.
func (s *Service) CreateBooking(ctx context.Context, req models.BookingRequest) (string, error) {
	durationHours, err := validation.Duration(req.DurationHours, req.TattooPrice)
	if err != nil {
		return "", err
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, s.Loc)
	if err != nil {
		return "", &validation.Error{Field: "booking time", Reason: "does not match YYYY-MM-DD HH:MM"}
	}
	end := start.Add(time.Duration(durationHours * float64(time.Hour)))

	event := &gcal.Event{
		Summary:     "Τατουάζ - " + req.CustomerName,
		Description: buildDescription(req, durationHours),
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: s.Loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: s.Loc.String(),
		},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       []*gcal.EventReminder{{Method: "popup", Minutes: 60}},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := s.Events.Insert(ctx, event)
	if err != nil {
		s.Logger.Error("booking insert failed",
			zap.String("user", req.UserID), zap.String("date", req.Date), zap.Error(err))
		return "", utils.NewServiceError("calendar", err)
	}

	s.Logger.Info("booking created",
		zap.String("event", created.Id),
		zap.String("user", req.UserID),
		zap.String("date", req.Date),
		zap.String("time", req.Time))
	return created.Id, nil
}

func buildDescription(req models.BookingRequest, durationHours float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Πελάτης: %s\nΤηλέφωνο: %s", req.CustomerName, req.CustomerPhone)
	if req.Description != "" {
		fmt.Fprintf(&b, "\nΤατουάζ: %s", req.Description)
	}
	if req.TattooPrice > 0 {
		fmt.Fprintf(&b, "\nΕκτιμώμενη τιμή: %g€", req.TattooPrice)
		fmt.Fprintf(&b, "\nΔιάρκεια: %s", FormatDuration(durationHours))
	}
	return b.String()
}

// FindBookingsByPhone returns upcoming appointments (next 90 days) whose
// description carries the given phone number.
func (s *Service) FindBookingsByPhone(ctx context.Context, phone string) ([]Booking, error) {
	normalized, err := validation.Phone(phone)
	if err != nil {
		return nil, err
	}

	now := s.Now().In(s.Loc)
	events, err := s.Events.List(ctx, now, now.AddDate(0, 0, 90), normalized)
	if err != nil {
		return nil, utils.NewServiceError("calendar", err)
	}

	var out []Booking
	for _, ev := range events {
		if !strings.Contains(ev.Description, normalized) {
			continue
		}
		b := Booking{EventID: ev.Id, Summary: ev.Summary, Description: ev.Description}
		if ev.Start != nil && ev.Start.DateTime != "" {
			if t, perr := time.Parse(time.RFC3339, ev.Start.DateTime); perr == nil {
				b.Start = t.In(s.Loc)
			}
		}
		if ev.End != nil && ev.End.DateTime != "" {
			if t, perr := time.Parse(time.RFC3339, ev.End.DateTime); perr == nil {
				b.End = t.In(s.Loc)
			}
		}
		out = append(out, b)
	}

	s.Logger.Debug("phone lookup", zap.String("phone", normalized), zap.Int("matches", len(out)))
	return out, nil
}

// CancelBooking removes an appointment from the calendar.
func (s *Service) CancelBooking(ctx context.Context, eventID string) error {
	id, err := validation.EventID(eventID)
	if err != nil {
		return err
	}
	if err := s.Events.Delete(ctx, id); err != nil {
		return utils.NewServiceError("calendar", err)
	}
	s.Logger.Info("booking cancelled", zap.String("event", id))
	return nil
}

// Reschedule moves an appointment by cancelling it and creating a fresh
// event at the new time. When the cancel succeeds but the re-create
// fails, the returned error wraps ErrRescheduleIncomplete so the caller
// knows the customer currently has no appointment.
func (s *Service) Reschedule(ctx context.Context, eventID, newDate, newTime string, durationHours, tattooPrice float64) (string, error) {
	id, err := validation.EventID(eventID)
	if err != nil {
		return "", err
	}

	old, err := s.Events.Get(ctx, id)
	if err != nil {
		return "", utils.NewServiceError("calendar", err)
	}

	// Explicit duration wins, then price-derived, then the old event's span.
	if durationHours == 0 && tattooPrice == 0 {
		if old.Start != nil && old.End != nil && old.Start.DateTime != "" && old.End.DateTime != "" {
			oldStart, serr := time.Parse(time.RFC3339, old.Start.DateTime)
			oldEnd, eerr := time.Parse(time.RFC3339, old.End.DateTime)
			if serr == nil && eerr == nil {
				durationHours = oldEnd.Sub(oldStart).Hours()
			}
		}
		if durationHours == 0 {
			durationHours = 1
		}
	} else {
		durationHours, err = validation.Duration(durationHours, tattooPrice)
		if err != nil {
			return "", err
		}
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", newDate+" "+newTime, s.Loc)
	if err != nil {
		return "", &validation.Error{Field: "booking time", Reason: "does not match YYYY-MM-DD HH:MM"}
	}
	end := start.Add(time.Duration(durationHours * float64(time.Hour)))

	replacement := &gcal.Event{
		Summary:     old.Summary,
		Description: updateDescription(old.Description, tattooPrice, durationHours),
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: s.Loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: s.Loc.String(),
		},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       []*gcal.EventReminder{{Method: "popup", Minutes: 60}},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	if err := s.Events.Delete(ctx, id); err != nil {
		return "", utils.NewServiceError("calendar", err)
	}

	created, err := s.Events.Insert(ctx, replacement)
	if err != nil {
		s.Logger.Error("reschedule lost the original booking",
			zap.String("event", id), zap.String("newDate", newDate), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrRescheduleIncomplete, err)
	}

	s.Logger.Info("booking rescheduled",
		zap.String("oldEvent", id),
		zap.String("newEvent", created.Id),
		zap.String("date", newDate),
		zap.String("time", newTime))
	return created.Id, nil
}

// updateDescription rewrites the price and duration lines of a booking
// description, appending them when missing.
func updateDescription(desc string, price, durationHours float64) string {
	if price <= 0 {
		return desc
	}
	priceLine := fmt.Sprintf("Εκτιμώμενη τιμή: %g€", price)
	durationLine := "Διάρκεια: " + FormatDuration(durationHours)

	lines := strings.Split(desc, "\n")
	priceSet, durationSet := false, false
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "Εκτιμώμενη τιμή:"):
			lines[i] = priceLine
			priceSet = true
		case strings.HasPrefix(line, "Διάρκεια:"):
			lines[i] = durationLine
			durationSet = true
		}
	}
	if !priceSet {
		lines = append(lines, priceLine)
	}
	if !durationSet {
		lines = append(lines, durationLine)
	}
	return strings.Join(lines, "\n")
}

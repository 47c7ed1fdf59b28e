package models

import "time"

// SlotKeyLayout formats a slot start time into its arbitration key.
// Keys are studio-local and minute-granular.
const SlotKeyLayout = "2006-01-02T15:04"

// SlotKey derives the arbitration key for a slot start time.
func SlotKey(start time.Time) string {
	return start.Format(SlotKeyLayout)
}

// HoldRecord is a short-lived reservation of a calendar slot.
// At most one unexpired record may exist per slot key.
type HoldRecord struct {
	Token     string    `json:"token"`
	Holder    string    `json:"holder"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the hold is past its expiry at the given instant.
func (h HoldRecord) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// BookingRequest carries everything needed to create a calendar event.
type BookingRequest struct {
	CustomerName  string
	CustomerPhone string
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
	DurationHours float64
	TattooPrice   float64
	Description   string
	UserID        string
}

// AvailableSlot is one bookable opening offered to a customer.
type AvailableSlot struct {
	Date      string    `json:"date"`      // YYYY-MM-DD
	StartTime string    `json:"startTime"` // HH:MM
	Start     time.Time `json:"datetime"`
}

// AvailabilityQuery bounds a calendar availability scan.
type AvailabilityQuery struct {
	StartDate     string // YYYY-MM-DD, required
	EndDate       string // optional, defaults to StartDate
	DurationHours float64
	TattooPrice   float64
	UserID        string
	PreferredTime string // HH:MM, applies to the first day only
}

// Package validation holds the pure input checks applied to user-supplied
// values before any external call is made.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"inkflow/utils"
)

// Error marks rejected user input. Validation failures are terminal: they are
// never retried and never reach an external service.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func newError(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

var (
	phoneStripRe = regexp.MustCompile(`[\s\-()]`)
	digitsRe     = regexp.MustCompile(`^[0-9]+$`)
	nameRe       = regexp.MustCompile(`^[a-zA-ZΑ-Ωα-ωίϊΐόάέύϋΰήώ\s\-.]+$`)
	eventIDRe    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	textKeepRe   = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:\-()/"'\n]`)
)

// Phone normalizes a Greek phone number to its bare 10-digit form.
// Accepts +30 / 0030 / 30 country prefixes and common separators.
func Phone(phone string) (string, error) {
	if phone == "" {
		return "", newError("phone", "cannot be empty")
	}

	cleaned := phoneStripRe.ReplaceAllString(phone, "")

	switch {
	case strings.HasPrefix(cleaned, "+30"):
		cleaned = cleaned[3:]
	case strings.HasPrefix(cleaned, "0030"):
		cleaned = cleaned[4:]
	case strings.HasPrefix(cleaned, "30") && len(cleaned) == 12:
		cleaned = cleaned[2:]
	}

	if len(cleaned) != 10 {
		return "", newError("phone", "length %d (expected 10 digits)", len(cleaned))
	}
	if !digitsRe.MatchString(cleaned) {
		return "", newError("phone", "must contain only digits")
	}
	// Mobile prefixes 69/68, landlines start with 2.
	if !strings.HasPrefix(cleaned, "69") && !strings.HasPrefix(cleaned, "68") && !strings.HasPrefix(cleaned, "2") {
		return "", newError("phone", "unrecognized prefix %q", cleaned[:2])
	}

	return cleaned, nil
}

// Date parses a YYYY-MM-DD date and rejects dates in the past (today is allowed).
func Date(dateStr string) (time.Time, error) {
	return dateAt(dateStr, time.Now())
}

func dateAt(dateStr string, now time.Time) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, newError("date", "cannot be empty")
	}
	parsed, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, newError("date", "%q does not match YYYY-MM-DD", dateStr)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if parsed.Before(today) {
		return time.Time{}, newError("date", "%q is in the past", dateStr)
	}
	return parsed, nil
}

// TimeOfDay parses HH:MM and enforces the studio's working hours.
func TimeOfDay(timeStr string) (hour, minute int, err error) {
	if timeStr == "" {
		return 0, 0, newError("time", "cannot be empty")
	}
	parsed, perr := time.Parse("15:04", timeStr)
	if perr != nil {
		return 0, 0, newError("time", "%q does not match HH:MM", timeStr)
	}
	hour, minute = parsed.Hour(), parsed.Minute()
	if hour < 11 || hour >= 20 {
		return 0, 0, newError("time", "%q is outside business hours (11:00-20:00)", timeStr)
	}
	return hour, minute, nil
}

// Duration resolves the appointment duration in hours. An explicit duration
// wins; otherwise it is derived from the quoted price (price/100 hours,
// rounded up to 5-minute granularity). With neither, one hour is assumed.
func Duration(durationHours, tattooPrice float64) (float64, error) {
	if durationHours == 0 && tattooPrice == 0 {
		return 1, nil
	}

	if durationHours != 0 {
		if durationHours < 0 {
			return 0, newError("duration", "must be positive: %v", durationHours)
		}
		if durationHours > utils.MaxDurationHours {
			return 0, newError("duration", "too long (max %d hours): %v", utils.MaxDurationHours, durationHours)
		}
		return durationHours, nil
	}

	if tattooPrice < 0 {
		return 0, newError("price", "must be positive: %v", tattooPrice)
	}
	if tattooPrice > utils.MaxTattooPrice {
		return 0, newError("price", "too high (max %d): %v", utils.MaxTattooPrice, tattooPrice)
	}

	return RoundDurationUp(tattooPrice / utils.PriceToHoursDivisor), nil
}

// RoundDurationUp rounds a duration in hours up to the nearest 5 minutes.
func RoundDurationUp(hours float64) float64 {
	minutes := math.Ceil(hours*60/5) * 5
	return minutes / 60
}

// CustomerName checks a customer name for length and character set.
func CustomerName(name string) (string, error) {
	if name == "" {
		return "", newError("name", "cannot be empty")
	}
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return "", newError("name", "too short")
	}
	if len([]rune(name)) > 100 {
		return "", newError("name", "too long (max 100 characters)")
	}
	if !nameRe.MatchString(name) {
		return "", newError("name", "contains invalid characters")
	}
	return name, nil
}

// EventID checks a calendar event identifier.
func EventID(id string) (string, error) {
	if id == "" {
		return "", newError("event id", "cannot be empty")
	}
	if len(id) > 1024 {
		return "", newError("event id", "too long")
	}
	if !eventIDRe.MatchString(id) {
		return "", newError("event id", "must be alphanumeric")
	}
	return id, nil
}

// SanitizeText strips control characters from free text and caps its length.
func SanitizeText(text string, maxLength int) (string, error) {
	if text == "" {
		return "", nil
	}
	text = strings.TrimSpace(text)
	if len([]rune(text)) > maxLength {
		return "", newError("text", "too long (max %d characters)", maxLength)
	}
	return textKeepRe.ReplaceAllString(text, ""), nil
}

package validation

import (
	"errors"
	"testing"
	"time"
)

func TestPhoneNormalizesCountryCode(t *testing.T) {
	t.Parallel()

	got, err := Phone("+30 691 234 5678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "6912345678" {
		t.Fatalf("expected 6912345678, got %s", got)
	}
}

func TestPhoneAcceptedForms(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"6912345678":     "6912345678",
		"0030 6812345678": "6812345678",
		"306912345678":   "6912345678",
		"210-123-4567":   "2101234567",
		"(210) 1234 567": "2101234567",
	}
	for in, want := range cases {
		got, err := Phone(in)
		if err != nil {
			t.Fatalf("Phone(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("Phone(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPhoneRejectsMalformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"12345",
		"69123456789999",
		"69123456ab",
		"5912345678", // unknown prefix
	}
	for _, in := range cases {
		_, err := Phone(in)
		var verr *Error
		if !errors.As(err, &verr) {
			t.Fatalf("Phone(%q): expected validation error, got %v", in, err)
		}
	}
}

func TestDateRejectsPastAllowsToday(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 13, 0, 0, 0, time.UTC)

	if _, err := dateAt("2026-03-15", now); err != nil {
		t.Fatalf("today must be allowed: %v", err)
	}
	if _, err := dateAt("2026-03-14", now); err == nil {
		t.Fatal("yesterday must be rejected")
	}
	if _, err := dateAt("15/03/2026", now); err == nil {
		t.Fatal("wrong format must be rejected")
	}
}

func TestTimeOfDayBusinessHours(t *testing.T) {
	t.Parallel()

	h, m, err := TimeOfDay("14:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != 14 || m != 30 {
		t.Fatalf("expected 14:30, got %02d:%02d", h, m)
	}

	for _, in := range []string{"10:59", "20:00", "23:15", "garbage", ""} {
		if _, _, err := TimeOfDay(in); err == nil {
			t.Fatalf("TimeOfDay(%q): expected error", in)
		}
	}
}

func TestDurationDefaultsToOneHour(t *testing.T) {
	t.Parallel()

	d, err := Duration(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 1 {
		t.Fatalf("expected 1 hour, got %v", d)
	}
}

func TestDurationFromPriceRoundsUp(t *testing.T) {
	t.Parallel()

	// 130 euros -> 1.3h = 78min -> rounded up to 80min.
	d, err := Duration(0, 130)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 80.0 / 60.0
	if d != want {
		t.Fatalf("expected %v hours, got %v", want, d)
	}
}

func TestDurationBounds(t *testing.T) {
	t.Parallel()

	if _, err := Duration(11, 0); err == nil {
		t.Fatal("expected error for >10h duration")
	}
	if _, err := Duration(-1, 0); err == nil {
		t.Fatal("expected error for negative duration")
	}
	if _, err := Duration(0, 6000); err == nil {
		t.Fatal("expected error for price above cap")
	}
	if _, err := Duration(0, -50); err == nil {
		t.Fatal("expected error for negative price")
	}
}

func TestCustomerName(t *testing.T) {
	t.Parallel()

	got, err := CustomerName("  Γιώργος Παπαδόπουλος ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Γιώργος Παπαδόπουλος" {
		t.Fatalf("unexpected name: %q", got)
	}

	for _, in := range []string{"", "A", "Bob<script>"} {
		if _, err := CustomerName(in); err == nil {
			t.Fatalf("CustomerName(%q): expected error", in)
		}
	}
}

func TestEventID(t *testing.T) {
	t.Parallel()

	if _, err := EventID("abc_123XYZ"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, in := range []string{"", "has space", "semi;colon"} {
		if _, err := EventID(in); err == nil {
			t.Fatalf("EventID(%q): expected error", in)
		}
	}
}

func TestSanitizeTextStripsControlCharacters(t *testing.T) {
	t.Parallel()

	got, err := SanitizeText("γεια σου! <tag> #5\x00", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "γεια σου! tag 5" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}

	if _, err := SanitizeText("aaaa", 3); err == nil {
		t.Fatal("expected error for over-length text")
	}
}

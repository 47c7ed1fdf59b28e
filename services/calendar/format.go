package calendar

import (
	"fmt"
	"strings"

	"inkflow/models"
)

var greekDays = map[string]string{
	"Monday":    "Δευτέρα",
	"Tuesday":   "Τρίτη",
	"Wednesday": "Τετάρτη",
	"Thursday":  "Πέμπτη",
	"Friday":    "Παρασκευή",
	"Saturday":  "Σάββατο",
	"Sunday":    "Κυριακή",
}

var greekMonths = [...]string{
	"Ιανουαρίου", "Φεβρουαρίου", "Μαρτίου", "Απριλίου", "Μαΐου", "Ιουνίου",
	"Ιουλίου", "Αυγούστου", "Σεπτεμβρίου", "Οκτωβρίου", "Νοεμβρίου", "Δεκεμβρίου",
}

// FormatSlotsMessage renders suggested openings as a Greek customer
// message, grouped by day.
func FormatSlotsMessage(slots []models.AvailableSlot) string {
	if len(slots) == 0 {
		return "Δυστυχώς δεν υπάρχουν διαθέσιμες ώρες για τις ημερομηνίες που ζητήσατε."
	}

	var order []string
	byDate := make(map[string][]string)
	for _, slot := range slots {
		if _, ok := byDate[slot.Date]; !ok {
			order = append(order, slot.Date)
		}
		byDate[slot.Date] = append(byDate[slot.Date], slot.StartTime)
	}

	var b strings.Builder
	b.WriteString("Διαθέσιμες ώρες:\n\n")
	for _, date := range order {
		times := byDate[date]
		var dayLabel string
		for _, slot := range slots {
			if slot.Date == date {
				dayLabel = fmt.Sprintf("%s, %d %s",
					greekDays[slot.Start.Weekday().String()],
					slot.Start.Day(),
					greekMonths[slot.Start.Month()-1])
				break
			}
		}

		shown := times
		if len(shown) > 3 {
			shown = shown[:3]
		}
		fmt.Fprintf(&b, "📅 %s:\n   ⏰ %s", dayLabel, strings.Join(shown, ", "))
		if extra := len(times) - len(shown); extra > 0 {
			fmt.Fprintf(&b, " και άλλες %d", extra)
		}
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// FormatDuration renders a duration in hours as Greek text, e.g.
// "1 ώρα και 30 λεπτά".
func FormatDuration(durationHours float64) string {
	total := int(durationHours * 60)
	hours, minutes := total/60, total%60

	switch {
	case hours == 0:
		return fmt.Sprintf("%d λεπτά", minutes)
	case minutes == 0 && hours == 1:
		return "1 ώρα"
	case minutes == 0:
		return fmt.Sprintf("%d ώρες", hours)
	case hours == 1:
		return fmt.Sprintf("1 ώρα και %d λεπτά", minutes)
	default:
		return fmt.Sprintf("%d ώρες και %d λεπτά", hours, minutes)
	}
}

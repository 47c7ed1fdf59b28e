package assistant

import (
	"regexp"
	"strings"

	"inkflow/models"
)

var contextPhonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b69\d{8}\b`),
	regexp.MustCompile(`\b\+30\s?69\d{8}\b`),
	regexp.MustCompile(`\b\+30\s?\d{10}\b`),
	regexp.MustCompile(`\b21\d{8}\b`),
	regexp.MustCompile(`\b\d{10}\b`),
}

// PhoneFromContext scans the conversation, newest first, for a Greek
// phone number the customer already shared. Returns "" when none is
// found.
func PhoneFromContext(history []models.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		content := history[i].Content
		if content == "" {
			continue
		}
		for _, re := range contextPhonePatterns {
			m := re.FindString(content)
			if m == "" {
				continue
			}
			phone := strings.ReplaceAll(strings.ReplaceAll(m, "+30", ""), " ", "")
			if len(phone) == 10 {
				return phone
			}
		}
	}
	return ""
}

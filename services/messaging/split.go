// Package messaging delivers assistant replies over the Instagram
// Graph API and fetches media the customer attaches.
package messaging

import "strings"

// SplitMessage breaks text into chunks no longer than limit runes.
// Each cut prefers the last newline in the window, then the last
// space, and only hard-cuts when the window has neither.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		window := runes[:limit]
		cut := lastIndexRune(window, '\n')
		if cut <= 0 {
			cut = lastIndexRune(window, ' ')
		}
		if cut <= 0 {
			cut = limit
		}
		part := strings.TrimSpace(string(runes[:cut]))
		if part != "" {
			parts = append(parts, part)
		}
		runes = runes[cut:]
		for len(runes) > 0 && (runes[0] == ' ' || runes[0] == '\n') {
			runes = runes[1:]
		}
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		parts = append(parts, rest)
	}
	if parts == nil {
		parts = []string{""}
	}
	return parts
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

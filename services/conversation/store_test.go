package conversation

import (
	"testing"

	"inkflow/models"
)

func TestTrimHistoryKeepsMostRecent(t *testing.T) {
	t.Parallel()

	var history []models.ChatMessage
	for i := 0; i < 25; i++ {
		history = append(history, models.ChatMessage{Role: "user", Content: string(rune('a' + i))})
	}

	trimmed := TrimHistory(history, 20)
	if len(trimmed) != 20 {
		t.Fatalf("expected 20 turns, got %d", len(trimmed))
	}
	if trimmed[0].Content != history[5].Content {
		t.Fatalf("oldest turns must be dropped first, got %q", trimmed[0].Content)
	}
	if trimmed[19].Content != history[24].Content {
		t.Fatalf("newest turn must survive, got %q", trimmed[19].Content)
	}
}

func TestTrimHistoryShortConversationUntouched(t *testing.T) {
	t.Parallel()

	history := []models.ChatMessage{
		{Role: "user", Content: "γεια"},
		{Role: "assistant", Content: "γεια σας ❤️🐼"},
	}
	trimmed := TrimHistory(history, 20)
	if len(trimmed) != 2 {
		t.Fatalf("short history must be untouched, got %d", len(trimmed))
	}
}

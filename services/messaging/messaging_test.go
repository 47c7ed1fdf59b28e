package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestSplitMessageShortTextUntouched(t *testing.T) {
	t.Parallel()

	parts := SplitMessage("γεια σας!", 800)
	if len(parts) != 1 || parts[0] != "γεια σας!" {
		t.Fatalf("unexpected parts: %v", parts)
	}
}

func TestSplitMessagePrefersNewline(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("α", 50) + "\n" + strings.Repeat("β", 50)
	parts := SplitMessage(text, 60)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d: %v", len(parts), parts)
	}
	if parts[0] != strings.Repeat("α", 50) {
		t.Fatalf("first part must end at the newline, got %q", parts[0])
	}
	if parts[1] != strings.Repeat("β", 50) {
		t.Fatalf("unexpected second part: %q", parts[1])
	}
}

func TestSplitMessageFallsBackToSpace(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("α", 40) + " " + strings.Repeat("β", 40)
	parts := SplitMessage(text, 60)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %v", parts)
	}
	if parts[0] != strings.Repeat("α", 40) {
		t.Fatalf("first part must end at the space, got %q", parts[0])
	}
}

func TestSplitMessageHardCutsUnbrokenRun(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("α", 100)
	parts := SplitMessage(text, 60)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %v", parts)
	}
	if len([]rune(parts[0])) != 60 || len([]rune(parts[1])) != 40 {
		t.Fatalf("unexpected cut lengths: %d, %d", len([]rune(parts[0])), len([]rune(parts[1])))
	}
}

func TestSplitMessageEveryPartWithinLimit(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("λέξη με κενά και\nνέες γραμμές ", 200)
	for _, part := range SplitMessage(text, 800) {
		if n := len([]rune(part)); n > 800 {
			t.Fatalf("part exceeds limit: %d runes", n)
		}
	}
}

func TestSendMessagePostsToGraphAPI(t *testing.T) {
	t.Parallel()

	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.Write([]byte(`{"recipient_id":"u1","message_id":"m1"}`))
	}))
	defer srv.Close()

	c, err := NewClient("tok", zap.NewNop(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.SendMessage(context.Background(), "u1", "γεια"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Recipient.ID != "u1" || got.Message.Text != "γεια" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestSendMessageSurfacesGraphError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid user","code":100}}`))
	}))
	defer srv.Close()

	c, _ := NewClient("tok", zap.NewNop(), WithBaseURL(srv.URL))
	err := c.SendMessage(context.Background(), "u1", "γεια")
	if err == nil || !strings.Contains(err.Error(), "Invalid user") {
		t.Fatalf("expected graph error message, got %v", err)
	}
}

func TestSendLongStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := NewClient("tok", zap.NewNop(), WithBaseURL(srv.URL))
	text := strings.Repeat("α", 800) + " " + strings.Repeat("β", 800) + " " + strings.Repeat("γ", 800)
	if err := c.SendLong(context.Background(), "u1", text); err == nil {
		t.Fatal("expected delivery failure")
	}
	if calls != 2 {
		t.Fatalf("delivery must stop at the failed chunk, got %d calls", calls)
	}
}

func TestDownloadImageWritesTempFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	c, _ := NewClient("tok", zap.NewNop())
	path, err := c.DownloadImage(context.Background(), srv.URL+"/media/1.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("temp file missing: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected file content: %q", data)
	}
}

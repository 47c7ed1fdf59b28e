package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inkflow/models"
)

type fakeGateway struct {
	mu        sync.Mutex
	queued    []models.QueuedMessage
	muted     []string
	cleared   []string
	pending   int
	done      int
	analyses  []string
	enqueueTo []string
}

func (f *fakeGateway) Enqueue(ctx context.Context, userID string, msg models.QueuedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, msg)
	f.enqueueTo = append(f.enqueueTo, userID)
	return nil
}

func (f *fakeGateway) Mute(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = append(f.muted, userID)
	return nil
}

func (f *fakeGateway) ClearQueue(ctx context.Context, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, userID)
}

func (f *fakeGateway) ClearScheduled(ctx context.Context, userID string) {}

func (f *fakeGateway) AddPendingImage(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending++
	return nil
}

func (f *fakeGateway) ImageDone(ctx context.Context, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done++
}

func (f *fakeGateway) PushAnalysis(ctx context.Context, userID, analysis string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, analysis)
	return nil
}

func (f *fakeGateway) snapshot() fakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeGateway{
		queued:    append([]models.QueuedMessage(nil), f.queued...),
		muted:     append([]string(nil), f.muted...),
		cleared:   append([]string(nil), f.cleared...),
		pending:   f.pending,
		done:      f.done,
		analyses:  append([]string(nil), f.analyses...),
		enqueueTo: append([]string(nil), f.enqueueTo...),
	}
}

type fakeBatchScheduler struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeBatchScheduler) Schedule(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return nil
}

type fakeFetcher struct {
	path string
	err  error
}

func (f *fakeFetcher) DownloadImage(ctx context.Context, url string) (string, error) {
	return f.path, f.err
}

type fakeVision struct {
	analysis string
	err      error
}

func (f *fakeVision) AnalyzeImage(ctx context.Context, imagePath string) (string, error) {
	return f.analysis, f.err
}

func newTestRouter(h *WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/webhook", h.Verify)
	r.POST("/webhook", h.Receive)
	return r
}

func newTestHandler(gw *fakeGateway, sched *fakeBatchScheduler, fetcher ImageFetcher, vision VisionAnalyzer) *WebhookHandler {
	return NewWebhookHandler(gw, sched, fetcher, vision, zap.NewNop(),
		"verify-secret", map[string]bool{"admin-1": true}, "bot-9")
}

func TestVerifyEchoesChallenge(t *testing.T) {
	t.Parallel()
	h := newTestHandler(&fakeGateway{}, &fakeBatchScheduler{}, &fakeFetcher{}, &fakeVision{})
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "12345" {
		t.Fatalf("got %d %q, want 200 with challenge", w.Code, w.Body.String())
	}
}

func TestVerifyRejectsBadToken(t *testing.T) {
	t.Parallel()
	h := newTestHandler(&fakeGateway{}, &fakeBatchScheduler{}, &fakeFetcher{}, &fakeVision{})
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", w.Code)
	}
}

func postEvent(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestReceiveQueuesAndSchedules(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	sched := &fakeBatchScheduler{}
	h := newTestHandler(gw, sched, &fakeFetcher{}, &fakeVision{})
	r := newTestRouter(h)

	w := postEvent(t, r, `{
		"object": "instagram",
		"entry": [{"id": "page-1", "messaging": [{
			"sender": {"id": "cust-7"},
			"recipient": {"id": "page-1"},
			"message": {"mid": "m1", "text": "θέλω ραντεβού"}
		}]}]
	}`)

	if w.Code != http.StatusOK || w.Body.String() != "EVENT_RECEIVED" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	snap := gw.snapshot()
	if len(snap.queued) != 1 || snap.queued[0].Event.Message.Text != "θέλω ραντεβού" {
		t.Fatalf("queued = %+v", snap.queued)
	}
	if len(sched.users) != 1 || sched.users[0] != "cust-7" {
		t.Fatalf("scheduled for %v, want cust-7", sched.users)
	}
}

func TestReceiveHeartReactionMutesRecipient(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	sched := &fakeBatchScheduler{}
	h := newTestHandler(gw, sched, &fakeFetcher{}, &fakeVision{})
	r := newTestRouter(h)

	postEvent(t, r, `{
		"object": "instagram",
		"entry": [{"id": "page-1", "messaging": [{
			"sender": {"id": "bot-9"},
			"recipient": {"id": "cust-7"},
			"reaction": {"mid": "m1", "action": "react", "emoji": "❤"}
		}]}]
	}`)

	snap := gw.snapshot()
	if len(snap.muted) != 1 || snap.muted[0] != "cust-7" {
		t.Fatalf("muted = %v, want cust-7", snap.muted)
	}
	if len(snap.cleared) != 1 {
		t.Error("queued messages must be dropped on takeover")
	}
	if len(sched.users) != 0 {
		t.Error("a reaction must not schedule processing")
	}
}

func TestReceiveIgnoresForeignReaction(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	h := newTestHandler(gw, &fakeBatchScheduler{}, &fakeFetcher{}, &fakeVision{})
	r := newTestRouter(h)

	postEvent(t, r, `{
		"object": "instagram",
		"entry": [{"id": "page-1", "messaging": [{
			"sender": {"id": "cust-7"},
			"recipient": {"id": "page-1"},
			"reaction": {"mid": "m1", "emoji": "❤"}
		}]}]
	}`)

	if snap := gw.snapshot(); len(snap.muted) != 0 {
		t.Fatalf("customer reactions must not mute anyone, muted = %v", snap.muted)
	}
}

func TestReceiveIgnoresAdminMessages(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	sched := &fakeBatchScheduler{}
	h := newTestHandler(gw, sched, &fakeFetcher{}, &fakeVision{})
	r := newTestRouter(h)

	postEvent(t, r, `{
		"object": "instagram",
		"entry": [{"id": "page-1", "messaging": [{
			"sender": {"id": "admin-1"},
			"recipient": {"id": "cust-7"},
			"message": {"mid": "m1", "text": "θα σου απαντήσω εγώ"}
		}]}]
	}`)

	snap := gw.snapshot()
	if len(snap.queued) != 0 || len(sched.users) != 0 {
		t.Error("operator messages must not be queued or scheduled")
	}
}

func TestReceiveImageTracksPendingAndAnalyzes(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	sched := &fakeBatchScheduler{}
	tmp := t.TempDir() + "/img.jpg"
	h := newTestHandler(gw, sched, &fakeFetcher{path: tmp}, &fakeVision{analysis: "Τατουάζ τριαντάφυλλο 10x6cm"})
	r := newTestRouter(h)

	postEvent(t, r, `{
		"object": "instagram",
		"entry": [{"id": "page-1", "messaging": [{
			"sender": {"id": "cust-7"},
			"recipient": {"id": "page-1"},
			"message": {"mid": "m1", "attachments": [
				{"type": "image", "payload": {"url": "https://cdn.example/img.jpg"}}
			]}
		}]}]
	}`)

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := gw.snapshot()
		if snap.done == 1 {
			if snap.pending != 1 {
				t.Fatalf("pending bumps = %d, want 1", snap.pending)
			}
			if len(snap.analyses) != 1 || !strings.HasPrefix(snap.analyses[0], "Εικόνα 1: ") {
				t.Fatalf("analyses = %v", snap.analyses)
			}
			if len(snap.queued) != 1 || !snap.queued[0].HasImage {
				t.Fatalf("queued = %+v, want one message flagged with image", snap.queued)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("image analysis never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReceiveRejectsMalformedBody(t *testing.T) {
	t.Parallel()
	h := newTestHandler(&fakeGateway{}, &fakeBatchScheduler{}, &fakeFetcher{}, &fakeVision{})
	r := newTestRouter(h)

	w := postEvent(t, r, `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", w.Code)
	}
}

package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeIndex struct {
	filtered   []Match
	unfiltered []Match
	err        error
	calls      int
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, _ int, filter map[string]any) ([]Match, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if filter != nil {
		return f.filtered, nil
	}
	return f.unfiltered, nil
}

func match(score float64, query, response, intent string) Match {
	return Match{
		Score:    score,
		Metadata: map[string]string{"query": query, "response": response, "intent": intent},
	}
}

func TestSimilarConversationsDropsLowScores(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{unfiltered: []Match{
		match(0.92, "ποσο κοστιζει", "Από 50€", "pricing"),
		match(0.74, "γεια", "Γεια σας", "other"),
	}}
	s := NewService(&fakeEmbedder{}, idx, nil, zap.NewNop())

	got := s.SimilarConversations(context.Background(), "τιμη για μικρο ταττου", "")
	if len(got) != 1 {
		t.Fatalf("expected 1 example above threshold, got %d", len(got))
	}
	if got[0].Response != "Από 50€" {
		t.Fatalf("unexpected example: %+v", got[0])
	}
}

func TestSimilarConversationsFallsBackWhenFilterTooThin(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{
		filtered: []Match{match(0.80, "q1", "r1", "pricing")},
		unfiltered: []Match{
			match(0.85, "q1", "r1", "pricing"),
			match(0.82, "q2", "r2", "booking"),
		},
	}
	s := NewService(&fakeEmbedder{}, idx, nil, zap.NewNop())

	got := s.SimilarConversations(context.Background(), "ερωτηση", "pricing")
	if idx.calls != 2 {
		t.Fatalf("expected a filtered then an unfiltered query, got %d calls", idx.calls)
	}
	if len(got) != 2 {
		t.Fatalf("expected the unfiltered result set, got %+v", got)
	}
}

func TestSimilarConversationsKeepsSufficientFilteredSet(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{filtered: []Match{
		match(0.90, "q1", "r1", "booking"),
		match(0.88, "q2", "r2", "booking"),
	}}
	s := NewService(&fakeEmbedder{}, idx, nil, zap.NewNop())

	got := s.SimilarConversations(context.Background(), "ερωτηση", "booking")
	if idx.calls != 1 {
		t.Fatalf("expected a single filtered query, got %d calls", idx.calls)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 examples, got %+v", got)
	}
}

func TestRetrievalDegradesToEmptyOnFailure(t *testing.T) {
	t.Parallel()

	s := NewService(&fakeEmbedder{err: errors.New("quota")}, &fakeIndex{}, nil, zap.NewNop())
	if got := s.SimilarConversations(context.Background(), "ερωτηση", ""); got != nil {
		t.Fatalf("embedding failure must yield no examples, got %+v", got)
	}

	s = NewService(&fakeEmbedder{}, &fakeIndex{err: errors.New("down")}, nil, zap.NewNop())
	if got := s.SimilarConversations(context.Background(), "ερωτηση", ""); got != nil {
		t.Fatalf("index failure must yield no examples, got %+v", got)
	}
}

func TestSimilarPricingUsesPricingIndex(t *testing.T) {
	t.Parallel()

	pricing := &fakeIndex{unfiltered: []Match{match(0.9, "ποσο", "Από 50€", "")}}
	s := NewService(&fakeEmbedder{}, &fakeIndex{}, pricing, zap.NewNop())

	got := s.SimilarPricing(context.Background(), "ποσο κανει")
	if len(got) != 1 || pricing.calls != 1 {
		t.Fatalf("expected one pricing example, got %+v (calls=%d)", got, pricing.calls)
	}
}

func TestPineconeIndexQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "pc-key" {
			t.Errorf("missing api key header")
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.TopK != 3 || !req.IncludeMetadata {
			t.Errorf("unexpected query params: %+v", req)
		}
		json.NewEncoder(w).Encode(queryResponse{Matches: []Match{
			{ID: "v1", Score: 0.91, Metadata: map[string]string{"query": "q", "response": "r"}},
		}})
	}))
	defer srv.Close()

	idx, err := NewPineconeIndex(srv.URL, "pc-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matches, err := idx.Query(context.Background(), []float32{0.1}, 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "v1" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}

func TestPineconeIndexRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	idx, err := NewPineconeIndex(srv.URL, "bad-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := idx.Query(context.Background(), []float32{0.1}, 3, nil); err == nil {
		t.Fatal("expected an error for non-2xx status")
	}
}

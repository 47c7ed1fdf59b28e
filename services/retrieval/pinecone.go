// Package retrieval fetches few-shot examples for the assistant from the
// studio's vector indexes: past conversation turns and pricing answers.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseSizeBytes = 4 << 20

// VectorIndex answers nearest-neighbour queries over stored examples.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error)
}

// Match is one scored neighbour with its metadata payload.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// PineconeIndex talks to one Pinecone serverless index over its REST
// data-plane endpoint.
type PineconeIndex struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

// IndexOption customizes PineconeIndex.
type IndexOption func(*PineconeIndex)

func WithHTTPClient(client *http.Client) IndexOption {
	return func(p *PineconeIndex) {
		if client != nil {
			p.httpClient = client
		}
	}
}

func NewPineconeIndex(host, apiKey string, opts ...IndexOption) (*PineconeIndex, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return nil, errors.New("pinecone index host is required")
	}
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("pinecone api key is required")
	}

	idx := &PineconeIndex{
		host:       host,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(idx)
		}
	}
	return idx, nil
}

type queryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Filter          map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	body, err := json.Marshal(queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		Filter:          filter,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal pinecone query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build pinecone request: %w", err)
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute pinecone query: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read pinecone response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("pinecone http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed queryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode pinecone response: %w", err)
	}
	return parsed.Matches, nil
}

package retrieval

import (
	"context"

	"go.uber.org/zap"

	"inkflow/models"
	"inkflow/utils"
)

// Service queries the conversation and pricing indexes for few-shot
// examples. Retrieval is best effort: any failure degrades to an empty
// result so the assistant can still answer without examples.
type Service struct {
	Embedder      Embedder
	Conversations VectorIndex
	Pricing       VectorIndex
	Logger        *zap.Logger
}

func NewService(embedder Embedder, conversations, pricing VectorIndex, logger *zap.Logger) *Service {
	return &Service{
		Embedder:      embedder,
		Conversations: conversations,
		Pricing:       pricing,
		Logger:        logger,
	}
}

// SimilarConversations returns past exchanges similar to the query.
// Results are filtered by intent when one is given; if the filtered set
// is too thin the query is retried without the filter.
func (s *Service) SimilarConversations(ctx context.Context, query, intent string) []models.RetrievedExample {
	return s.search(ctx, s.Conversations, query, intent)
}

// SimilarPricing returns pricing exchanges similar to the query.
func (s *Service) SimilarPricing(ctx context.Context, query string) []models.RetrievedExample {
	return s.search(ctx, s.Pricing, query, "")
}

func (s *Service) search(ctx context.Context, index VectorIndex, query, intent string) []models.RetrievedExample {
	if index == nil {
		return nil
	}

	vector, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		s.Logger.Warn("embedding failed, skipping retrieval", zap.Error(err))
		return nil
	}

	var filter map[string]any
	if intent != "" {
		filter = map[string]any{"intent": map[string]any{"$eq": intent}}
	}

	matches, err := index.Query(ctx, vector, utils.TopKSimilar, filter)
	if err != nil {
		s.Logger.Warn("vector query failed, skipping retrieval", zap.Error(err))
		return nil
	}
	examples := aboveThreshold(matches)

	// A thin filtered set usually means the intent label is missing on
	// older vectors; retry across all intents before giving up.
	if filter != nil && len(examples) < 2 {
		matches, err = index.Query(ctx, vector, utils.TopKSimilar, nil)
		if err != nil {
			s.Logger.Warn("unfiltered vector query failed", zap.Error(err))
			return examples
		}
		examples = aboveThreshold(matches)
	}

	return examples
}

func aboveThreshold(matches []Match) []models.RetrievedExample {
	var out []models.RetrievedExample
	for _, m := range matches {
		if m.Score < utils.SimilarityThreshold {
			continue
		}
		out = append(out, models.RetrievedExample{
			Query:      m.Metadata["query"],
			Response:   m.Metadata["response"],
			Similarity: m.Score,
			Intent:     m.Metadata["intent"],
		})
	}
	return out
}

package retrieval

import (
	"context"
	"errors"

	"github.com/openai/openai-go"

	"inkflow/utils"
)

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder produces embeddings through the OpenAI embeddings
// endpoint.
type OpenAIEmbedder struct {
	Client *openai.Client
	Model  string
}

func NewOpenAIEmbedder(client *openai.Client, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{Client: client, Model: model}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.Client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(e.Model),
	})
	if err != nil {
		return nil, utils.NewServiceError("openai", err)
	}
	if len(resp.Data) == 0 {
		return nil, utils.NewServiceError("openai", errors.New("empty embedding response"))
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

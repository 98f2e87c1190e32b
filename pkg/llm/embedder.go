package llm

import (
	"context"
	"errors"
	"fmt"

	"rag-worker/cmd/configs"
	"rag-worker/cmd/defines"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyEmbedding is returned when the service answers without a vector
var ErrEmptyEmbedding = errors.New("embedding service returned no vector")

// Embedder turns text into vectors through an OpenAI-compatible embeddings API.
// Documents and queries share one model so they land in the same vector space.
type Embedder struct {
	embedder embeddings.Embedder
}

func NewEmbedder(config *configs.Config) (*Embedder, error) {
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	token := config.AI.EmbeddingToken
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.AI.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.AI.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return NewEmbedderFrom(embedder), nil
}

// NewEmbedderFrom wraps an existing langchaingo embedder
func NewEmbedderFrom(embedder embeddings.Embedder) *Embedder {
	return &Embedder{embedder: embedder}
}

// Embed returns the vector of text for the given task
func (e *Embedder) Embed(ctx context.Context, text string, task defines.EmbeddingTask) ([]float32, error) {
	if task == defines.EmbeddingTaskQuery {
		vector, err := e.embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		if len(vector) == 0 {
			return nil, ErrEmptyEmbedding
		}
		return vector, nil
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed document: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return vectors[0], nil
}

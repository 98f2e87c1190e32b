package services

import (
	"context"
	"fmt"
	"strings"

	"rag-worker/cmd/defines"
	"rag-worker/internal/models"
	apperrors "rag-worker/pkg/errors"

	fylogger "github.com/FyersDev/trading-logger-go"
)

const (
	DefaultTopK = 3

	// NoAnswer is what the model is told to say when the context lacks the answer
	NoAnswer = "I don't know based on the provided documents."
)

// RetrievalService answers questions from the caller's own ingested pages
type RetrievalService struct {
	embedder  Embedder
	store     VectorStore
	generator Generator
	topK      int
}

func NewRetrievalService(embedder Embedder, store VectorStore, generator Generator, topK int) *RetrievalService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalService{
		embedder:  embedder,
		store:     store,
		generator: generator,
		topK:      topK,
	}
}

// BuildPrompt assembles the generation prompt. Matches are joined in order,
// separated by a blank line.
func BuildPrompt(query string, matches []models.Match) string {
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Metadata.Text)
	}

	var b strings.Builder
	b.WriteString("You are a helpful AI assistant. Use the following context to answer the user's question.\n")
	b.WriteString(fmt.Sprintf("If the answer is NOT in the context, say %q\n\n", NoAnswer))
	b.WriteString("--- CONTEXT ---\n")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\n---------------\n\n")
	b.WriteString("User Question: ")
	b.WriteString(query)
	b.WriteString("\n")
	return b.String()
}

// Sources returns the distinct source URLs of matches in match order
func Sources(matches []models.Match) []string {
	sources := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		url := m.Metadata.SourceURL
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		sources = append(sources, url)
	}
	return sources
}

// Search returns the topK chunks owned by userID closest to query. A non-positive
// topK uses the service default.
func (s *RetrievalService) Search(ctx context.Context, query, userID string, topK int) ([]models.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewError(apperrors.ErrValidation.Code, "Query is required", apperrors.ErrValidation.Status)
	}
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if topK <= 0 {
		topK = s.topK
	}

	fields := map[string]interface{}{
		"user_id": userID,
		"stage":   "retrieve",
		"top_k":   topK,
	}

	vector, err := s.embedder.Embed(ctx, query, defines.EmbeddingTaskQuery)
	if err != nil {
		fylogger.ErrorLog(ctx, "failed to embed query", err, fields)
		return nil, apperrors.Wrap(apperrors.ErrExternalService, err)
	}

	matches, err := s.store.Query(ctx, models.VectorQuery{
		Vector:          vector,
		TopK:            topK,
		Filter:          map[string]string{models.MetaUserID: userID},
		IncludeMetadata: true,
	})
	if err != nil {
		fylogger.ErrorLog(ctx, "failed to search vectors", err, fields)
		return nil, apperrors.Wrap(apperrors.ErrExternalService, err)
	}

	fields["matches"] = len(matches)
	fylogger.InfoLog(ctx, "retrieved context", fields)
	return matches, nil
}

// AnswerQuery retrieves the closest chunks owned by userID and asks the generator
// to answer from them only
func (s *RetrievalService) AnswerQuery(ctx context.Context, query, userID string) (*models.Answer, error) {
	matches, err := s.Search(ctx, query, userID, s.topK)
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.Generate(ctx, BuildPrompt(strings.TrimSpace(query), matches))
	if err != nil {
		fylogger.ErrorLog(ctx, "failed to generate answer", err, map[string]interface{}{
			"user_id": userID,
			"stage":   "generate",
		})
		return nil, apperrors.Wrap(apperrors.ErrExternalService, err)
	}

	return &models.Answer{
		Answer:  answer,
		Sources: Sources(matches),
	}, nil
}

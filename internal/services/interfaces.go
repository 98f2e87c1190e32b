package services

import (
	"context"

	"rag-worker/cmd/defines"
	"rag-worker/internal/models"
)

// Scraper fetches a page and returns its cleaned text
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Chunker splits text into ordered chunks
type Chunker interface {
	Split(text string) []models.Chunk
}

// Embedder converts text into a vector. Document and query tasks share one space.
type Embedder interface {
	Embed(ctx context.Context, text string, task defines.EmbeddingTask) ([]float32, error)
}

// VectorStore persists chunk vectors and runs filtered similarity search
type VectorStore interface {
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Query(ctx context.Context, query models.VectorQuery) ([]models.Match, error)
}

// Generator answers a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StatusStore writes a job's status row
type StatusStore interface {
	UpdateStatus(ctx context.Context, id string, status defines.JobStatus, errorMessage *string) error
}

// DocumentStore is the full job row store used by the producer side
type DocumentStore interface {
	StatusStore
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
}

// JobQueue is the Redis list the producer and the consumer share
type JobQueue interface {
	Ping(ctx context.Context) error
	LPush(ctx context.Context, queue string, payload []byte) error
	BRPop(ctx context.Context, queue string) ([]byte, error)
	RPop(ctx context.Context, queue string) ([]byte, error)
}

// JobHandler runs one dequeued job to completion
type JobHandler interface {
	HandleJob(ctx context.Context, job models.JobDescriptor) error
}

// Pinger is anything with a liveness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenIssuer mints access tokens for a signed-in user
type TokenIssuer interface {
	GenerateAccessToken(userID, email string) (string, error)
}

package models

import (
	"fmt"
	"time"

	"rag-worker/cmd/defines"
)

// JobDescriptor is the queue payload pushed by the producer
type JobDescriptor struct {
	JobID  string `json:"jobId"`
	URL    string `json:"url"`
	UserID string `json:"userId"`
}

// Valid reports whether the descriptor carries the fields the pipeline needs
func (j JobDescriptor) Valid() bool {
	return j.JobID != "" && j.URL != ""
}

// Chunk is one bounded slice of a scraped document
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// VectorMetadata is stored next to every vector
type VectorMetadata struct {
	Text      string `json:"text"`
	SourceURL string `json:"source_url"`
	JobID     string `json:"job_id"`
	UserID    string `json:"user_id"`
}

// Metadata keys as stored in the vector index
const (
	MetaText      = "text"
	MetaSourceURL = "source_url"
	MetaJobID     = "job_id"
	MetaUserID    = "user_id"
	MetaVectorID  = "vector_id"
	MetaChunkIdx  = "chunk_index"
)

// VectorRecord is a chunk embedding ready for upsert
type VectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata VectorMetadata `json:"metadata"`
}

// VectorID builds the deterministic record id for a job chunk
func VectorID(jobID string, chunkIndex int) string {
	return fmt.Sprintf("%s#%d", jobID, chunkIndex)
}

// VectorQuery is a filtered similarity search
type VectorQuery struct {
	Vector          []float32
	TopK            int
	Filter          map[string]string
	IncludeMetadata bool
}

// Match is one similarity search hit
type Match struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata VectorMetadata `json:"metadata"`
}

// Answer is the retrieval response
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Document is the status row of a scrape job
type Document struct {
	ID           string            `json:"id"`
	SourceURL    string            `json:"source_url"`
	UserID       string            `json:"user_id"`
	Status       defines.JobStatus `json:"status"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// EnqueueResponse is returned to producers
type EnqueueResponse struct {
	JobID   string            `json:"jobId"`
	Status  defines.JobStatus `json:"status"`
	Message string            `json:"message"`
}

// User is an account that owns jobs and vectors
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type SignupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

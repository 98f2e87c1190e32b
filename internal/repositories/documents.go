package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rag-worker/cmd/defines"
	"rag-worker/internal/models"
	apperrors "rag-worker/pkg/errors"
	"rag-worker/pkg/postgres"

	"github.com/jackc/pgx/v5"
)

// DocumentRepository handles scrape job rows in the documents table
type DocumentRepository struct {
	db *postgres.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *postgres.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateSchema creates the documents table if it doesn't exist
func (r *DocumentRepository) CreateSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'PENDING'
				CHECK (status IN ('PENDING', 'IN_PROGRESS', 'COMPLETED', 'FAILED')),
			error_message TEXT,
			created_at TIMESTAMP DEFAULT NOW() NOT NULL,
			updated_at TIMESTAMP DEFAULT NOW() NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id);
		CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
		CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
	`

	_, err := r.db.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create documents schema: %w", err)
	}

	return nil
}

// Create inserts a new job row. The status defaults to PENDING.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.Status == "" {
		doc.Status = defines.JobStatusPending
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	query := `
		INSERT INTO documents (id, source_url, user_id, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		doc.ID,
		doc.SourceURL,
		doc.UserID,
		doc.Status,
		doc.ErrorMessage,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// GetByID retrieves a job row by its id
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `
		SELECT id, source_url, user_id, status, error_message, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	doc := &models.Document{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.SourceURL,
		&doc.UserID,
		&doc.Status,
		&doc.ErrorMessage,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// UpdateStatus sets status and error_message of a job in a single statement.
// A nil errorMessage clears any previous one.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status defines.JobStatus, errorMessage *string) error {
	query := `
		UPDATE documents
		SET status = $1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.db.Exec(ctx, query, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.Wrap(apperrors.ErrNotFound, fmt.Errorf("document %s", id))
	}

	return nil
}

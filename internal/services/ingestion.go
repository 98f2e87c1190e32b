package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"rag-worker/cmd/defines"
	"rag-worker/internal/models"
	apperrors "rag-worker/pkg/errors"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/google/uuid"
)

// IngestionService is the producer side: it records a PENDING job and queues it
type IngestionService struct {
	documents DocumentStore
	queue     JobQueue
	queueName string
}

func NewIngestionService(documents DocumentStore, queue JobQueue, queueName string) *IngestionService {
	if queueName == "" {
		queueName = defines.DefaultQueueName
	}
	return &IngestionService{
		documents: documents,
		queue:     queue,
		queueName: queueName,
	}
}

// ValidateURL accepts absolute http(s) URLs with a host
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", apperrors.NewError(apperrors.ErrValidation.Code, "url must be an absolute http(s) URL", apperrors.ErrValidation.Status)
	}
	return u.String(), nil
}

// Enqueue creates the job row first, then pushes the descriptor onto the queue
func (s *IngestionService) Enqueue(ctx context.Context, rawURL, userID string) (*models.EnqueueResponse, error) {
	sourceURL, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:        uuid.NewString(),
		SourceURL: sourceURL,
		UserID:    userID,
		Status:    defines.JobStatusPending,
	}

	fields := map[string]interface{}{
		"job_id":  doc.ID,
		"stage":   "enqueue",
		"url":     sourceURL,
		"user_id": userID,
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		fylogger.ErrorLog(ctx, "failed to create job row", err, fields)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	payload, err := json.Marshal(models.JobDescriptor{
		JobID:  doc.ID,
		URL:    doc.SourceURL,
		UserID: doc.UserID,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.queue.LPush(ctx, s.queueName, payload); err != nil {
		fylogger.ErrorLog(ctx, "failed to push job", err, fields)
		msg := fmt.Sprintf("enqueue failed: %v", err)
		if updateErr := s.documents.UpdateStatus(ctx, doc.ID, defines.JobStatusFailed, &msg); updateErr != nil {
			fylogger.ErrorLog(ctx, "failed to mark unqueued job as failed", updateErr, fields)
		}
		return nil, apperrors.Wrap(apperrors.ErrQueueConnection, err)
	}

	fylogger.InfoLog(ctx, "job queued", fields)

	return &models.EnqueueResponse{
		JobID:   doc.ID,
		Status:  defines.JobStatusPending,
		Message: "Job successfully queued",
	}, nil
}

// GetJob returns the status row of jobID if it belongs to userID
func (s *IngestionService) GetJob(ctx context.Context, jobID, userID string) (*models.Document, error) {
	doc, err := s.documents.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if doc.UserID != userID {
		// don't reveal other users' jobs
		return nil, apperrors.ErrNotFound
	}
	return doc, nil
}

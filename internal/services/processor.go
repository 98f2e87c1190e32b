package services

import (
	"context"
	"fmt"
	"time"

	"rag-worker/cmd/defines"
	"rag-worker/internal/models"
	apperrors "rag-worker/pkg/errors"

	fylogger "github.com/FyersDev/trading-logger-go"
)

// Pipeline stages, as they appear in logs
const (
	StageDequeue = "dequeue"
	StageScrape  = "scrape"
	StageChunk   = "chunk"
	StageEmbed   = "embed"
	StageUpsert  = "upsert"
	StageDone    = "done"
)

// StageError names the pipeline stage a job failed in
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// JobProcessor runs one job through scrape, chunk, embed and upsert and records
// the outcome. It is not reentrant; the worker pool guarantees one job at a time.
type JobProcessor struct {
	scraper  Scraper
	chunker  Chunker
	embedder Embedder
	store    VectorStore
	status   *StatusTracker
}

func NewJobProcessor(scraper Scraper, chunker Chunker, embedder Embedder, store VectorStore, status *StatusTracker) *JobProcessor {
	return &JobProcessor{
		scraper:  scraper,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		status:   status,
	}
}

func jobFields(job models.JobDescriptor, stage string) map[string]interface{} {
	return map[string]interface{}{
		"job_id":  job.JobID,
		"stage":   stage,
		"url":     job.URL,
		"user_id": job.UserID,
	}
}

// HandleJob lets the processor be driven by the consumer directly
func (p *JobProcessor) HandleJob(ctx context.Context, job models.JobDescriptor) error {
	p.Process(ctx, job)
	return nil
}

// Process runs job to a terminal status. Failures, panics included, end up as
// FAILED and are never returned.
func (p *JobProcessor) Process(ctx context.Context, job models.JobDescriptor) {
	if !job.Valid() {
		fylogger.ErrorLog(ctx, "skipping job without jobId or url", apperrors.ErrMalformedMessage, jobFields(job, StageDequeue))
		return
	}

	started := time.Now()
	p.status.SetStatus(ctx, job.JobID, defines.JobStatusInProgress)

	chunks, err := p.run(ctx, job)
	if err != nil {
		fields := jobFields(job, StageDone)
		if stageErr, ok := err.(*StageError); ok {
			fields["stage"] = stageErr.Stage
		}
		fylogger.ErrorLog(ctx, "job failed", err, fields)
		p.status.Fail(ctx, job.JobID, err)
		return
	}

	p.status.SetStatus(ctx, job.JobID, defines.JobStatusCompleted)

	fields := jobFields(job, StageDone)
	fields["chunks"] = chunks
	fields["duration_ms"] = time.Since(started).Milliseconds()
	fylogger.InfoLog(ctx, "job completed", fields)
}

// run executes the pipeline and returns the number of chunks written
func (p *JobProcessor) run(ctx context.Context, job models.JobDescriptor) (written int, err error) {
	stage := StageScrape
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	fylogger.InfoLog(ctx, "scraping page", jobFields(job, stage))
	text, err := p.scraper.Scrape(ctx, job.URL)
	if err != nil {
		return 0, &StageError{Stage: stage, Err: apperrors.Wrap(apperrors.ErrExternalService, err)}
	}

	stage = StageChunk
	chunks := p.chunker.Split(text)
	fields := jobFields(job, stage)
	fields["chunks"] = len(chunks)
	fields["characters"] = len(text)
	fylogger.InfoLog(ctx, "page chunked", fields)

	if len(chunks) == 0 {
		return 0, nil
	}

	stage = StageEmbed
	records := make([]models.VectorRecord, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := p.embedder.Embed(ctx, chunk.Text, defines.EmbeddingTaskDocument)
		if err != nil {
			return 0, &StageError{Stage: stage, Err: apperrors.Wrap(apperrors.ErrExternalService, fmt.Errorf("chunk %d: %w", chunk.Index, err))}
		}
		records = append(records, models.VectorRecord{
			ID:     models.VectorID(job.JobID, chunk.Index),
			Values: vector,
			Metadata: models.VectorMetadata{
				Text:      chunk.Text,
				SourceURL: job.URL,
				JobID:     job.JobID,
				UserID:    job.UserID,
			},
		})
	}

	stage = StageUpsert
	if err := p.store.Upsert(ctx, records); err != nil {
		return 0, &StageError{Stage: stage, Err: apperrors.Wrap(apperrors.ErrExternalService, err)}
	}
	fields = jobFields(job, stage)
	fields["vectors"] = len(records)
	fylogger.InfoLog(ctx, "vectors upserted", fields)

	return len(records), nil
}

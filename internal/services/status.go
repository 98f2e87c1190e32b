package services

import (
	"context"
	"fmt"

	"rag-worker/cmd/defines"

	fylogger "github.com/FyersDev/trading-logger-go"
)

// StatusTracker records job lifecycle transitions. Writes are best effort: a
// failed write is logged and dropped, never retried and never returned.
type StatusTracker struct {
	store StatusStore
}

func NewStatusTracker(store StatusStore) *StatusTracker {
	return &StatusTracker{store: store}
}

// SetStatus moves jobID to status
func (t *StatusTracker) SetStatus(ctx context.Context, jobID string, status defines.JobStatus) {
	t.write(ctx, jobID, status, nil)
}

// Fail moves jobID to FAILED and records cause
func (t *StatusTracker) Fail(ctx context.Context, jobID string, cause error) {
	var msg *string
	if cause != nil {
		s := cause.Error()
		msg = &s
	}
	t.write(ctx, jobID, defines.JobStatusFailed, msg)
}

func (t *StatusTracker) write(ctx context.Context, jobID string, status defines.JobStatus, errorMessage *string) {
	if err := t.store.UpdateStatus(ctx, jobID, status, errorMessage); err != nil {
		fylogger.ErrorLog(ctx, fmt.Sprintf("failed to set job status to %s", status), err, map[string]interface{}{
			"job_id": jobID,
			"stage":  "status",
			"status": string(status),
		})
		return
	}

	fylogger.InfoLog(ctx, fmt.Sprintf("job status updated to %s", status), map[string]interface{}{
		"job_id": jobID,
		"stage":  "status",
		"status": string(status),
	})
}

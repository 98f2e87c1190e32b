package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rag-worker/internal/models"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/panjf2000/ants/v2"
)

// JobRunner processes one job to completion
type JobRunner interface {
	Process(ctx context.Context, job models.JobDescriptor)
}

// WorkerStats is a point-in-time view of the worker pool
type WorkerStats struct {
	ActiveJobID string     `json:"active_job_id,omitempty"`
	ActiveSince *time.Time `json:"active_since,omitempty"`
	Processed   int64      `json:"processed"`
	Panics      int64      `json:"panics"`
	Running     int        `json:"running"`
	Capacity    int        `json:"capacity"`
}

// JobWorkerPool runs jobs on a dedicated single-slot goroutine pool, away from
// the goroutines serving HTTP. HandleJob blocks until the job finishes, so at most
// one job is in flight, and a panic in the pipeline stops at the pool.
type JobWorkerPool struct {
	pool   *ants.Pool
	runner JobRunner

	mu          sync.RWMutex
	activeJobID string
	activeSince *time.Time
	processed   int64
	panics      int64
}

// WorkerPoolConfig holds configuration for the worker pool
type WorkerPoolConfig struct {
	WorkerCount    int
	ReleaseTimeout time.Duration
}

// DefaultWorkerPoolConfig returns a single worker, matching the one-job-at-a-time pipeline
func DefaultWorkerPoolConfig() *WorkerPoolConfig {
	return &WorkerPoolConfig{
		WorkerCount:    1,
		ReleaseTimeout: 30 * time.Second,
	}
}

// NewJobWorkerPool creates a new worker pool
func NewJobWorkerPool(runner JobRunner, config *WorkerPoolConfig) (*JobWorkerPool, error) {
	if config == nil {
		config = DefaultWorkerPoolConfig()
	}
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}

	p := &JobWorkerPool{runner: runner}

	pool, err := ants.NewPool(config.WorkerCount, ants.WithPanicHandler(p.onPanic))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	p.pool = pool

	fylogger.InfoLog(context.Background(), fmt.Sprintf("Started %d job worker(s)", config.WorkerCount), nil)
	return p, nil
}

func (p *JobWorkerPool) onPanic(r interface{}) {
	p.mu.Lock()
	p.panics++
	jobID := p.activeJobID
	p.activeJobID = ""
	p.activeSince = nil
	p.mu.Unlock()

	fylogger.ErrorLog(context.Background(), "worker recovered from panic", fmt.Errorf("%v", r), map[string]interface{}{
		"job_id": jobID,
		"stage":  "worker",
	})
}

// HandleJob submits job to the pool and waits for it to finish
func (p *JobWorkerPool) HandleJob(ctx context.Context, job models.JobDescriptor) error {
	done := make(chan struct{})

	err := p.pool.Submit(func() {
		defer close(done)

		p.begin(job.JobID)
		p.runner.Process(ctx, job)
		p.end()
	})
	if err != nil {
		return fmt.Errorf("submit job %s: %w", job.JobID, err)
	}

	<-done
	return nil
}

func (p *JobWorkerPool) begin(jobID string) {
	now := time.Now()
	p.mu.Lock()
	p.activeJobID = jobID
	p.activeSince = &now
	p.mu.Unlock()
}

func (p *JobWorkerPool) end() {
	p.mu.Lock()
	p.activeJobID = ""
	p.activeSince = nil
	p.processed++
	p.mu.Unlock()
}

// Stats returns the current worker state
func (p *JobWorkerPool) Stats() WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return WorkerStats{
		ActiveJobID: p.activeJobID,
		ActiveSince: p.activeSince,
		Processed:   p.processed,
		Panics:      p.panics,
		Running:     p.pool.Running(),
		Capacity:    p.pool.Cap(),
	}
}

// Stop waits for the running job, up to the timeout, and releases the pool
func (p *JobWorkerPool) Stop(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultWorkerPoolConfig().ReleaseTimeout
	}
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		fylogger.ErrorLog(context.Background(), "worker pool did not stop in time", err, nil)
		return
	}
	fylogger.InfoLog(context.Background(), "Job worker pool stopped", nil)
}

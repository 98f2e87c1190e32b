package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rag-worker/internal/models"
	apperrors "rag-worker/pkg/errors"
	"rag-worker/pkg/memorydb"

	fylogger "github.com/FyersDev/trading-logger-go"
)

// ConsumerMode selects how the consumer waits for work
type ConsumerMode string

const (
	// ConsumerModeBlocking waits on BRPOP forever. Used by a worker-only process.
	ConsumerModeBlocking ConsumerMode = "blocking"
	// ConsumerModePolling uses RPOP and sleeps when the queue is empty. Used when
	// the same process also serves HTTP.
	ConsumerModePolling ConsumerMode = "polling"
)

const (
	DefaultPollInterval = time.Second
	DefaultBackoff      = 5 * time.Second
)

// ConsumerConfig holds queue consumer settings
type ConsumerConfig struct {
	QueueName    string
	Mode         ConsumerMode
	PollInterval time.Duration
	Backoff      time.Duration
}

// QueueConsumer drains the scrape queue serially, handing each job to the handler
// and waiting for it before popping the next one.
type QueueConsumer struct {
	queue   JobQueue
	handler JobHandler
	config  ConsumerConfig
}

func NewQueueConsumer(queue JobQueue, handler JobHandler, config ConsumerConfig) *QueueConsumer {
	if config.Mode == "" {
		config.Mode = ConsumerModeBlocking
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Backoff <= 0 {
		config.Backoff = DefaultBackoff
	}

	return &QueueConsumer{
		queue:   queue,
		handler: handler,
		config:  config,
	}
}

// ParseJob decodes a queue payload
func ParseJob(payload []byte) (models.JobDescriptor, error) {
	var job models.JobDescriptor
	if err := json.Unmarshal(payload, &job); err != nil {
		return job, apperrors.Wrap(apperrors.ErrMalformedMessage, err)
	}
	return job, nil
}

// Run consumes until ctx is cancelled. It only returns an error when the queue
// cannot be reached at startup; later failures are retried after a backoff.
func (c *QueueConsumer) Run(ctx context.Context) error {
	if err := c.queue.Ping(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrQueueConnection, err)
	}

	fylogger.InfoLog(ctx, "queue consumer started", map[string]interface{}{
		"queue": c.config.QueueName,
		"mode":  string(c.config.Mode),
		"stage": StageDequeue,
	})

	for {
		if ctx.Err() != nil {
			fylogger.InfoLog(ctx, "queue consumer stopped", map[string]interface{}{
				"queue": c.config.QueueName,
				"stage": StageDequeue,
			})
			return nil
		}

		payload, err := c.pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, memorydb.ErrQueueEmpty) {
				if c.config.Mode == ConsumerModePolling {
					sleep(ctx, c.config.PollInterval)
				}
				continue
			}

			fylogger.ErrorLog(ctx, "failed to pop from queue, backing off", err, map[string]interface{}{
				"queue":   c.config.QueueName,
				"stage":   StageDequeue,
				"backoff": c.config.Backoff.String(),
			})
			sleep(ctx, c.config.Backoff)
			continue
		}

		c.dispatch(ctx, payload)
	}
}

func (c *QueueConsumer) pop(ctx context.Context) ([]byte, error) {
	if c.config.Mode == ConsumerModePolling {
		return c.queue.RPop(ctx, c.config.QueueName)
	}
	return c.queue.BRPop(ctx, c.config.QueueName)
}

func (c *QueueConsumer) dispatch(ctx context.Context, payload []byte) {
	job, err := ParseJob(payload)
	if err != nil {
		fylogger.ErrorLog(ctx, "discarding malformed queue message", err, map[string]interface{}{
			"queue":   c.config.QueueName,
			"stage":   StageDequeue,
			"payload": string(payload),
		})
		return
	}

	fylogger.InfoLog(ctx, "job dequeued", jobFields(job, StageDequeue))

	// A started job runs to a terminal status even if the consumer is stopping
	if err := c.handler.HandleJob(context.WithoutCancel(ctx), job); err != nil {
		fylogger.ErrorLog(ctx, "failed to hand job to worker", err, jobFields(job, StageDequeue))
	}
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

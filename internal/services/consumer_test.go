package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"rag-worker/internal/models"
	apperrors "rag-worker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runConsumer(t *testing.T, queue *fakeQueue, handler JobHandler, mode ConsumerMode) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	queue.drained = cancel

	consumer := NewQueueConsumer(queue, handler, ConsumerConfig{
		QueueName:    "scraping_queue",
		Mode:         mode,
		PollInterval: 5 * time.Millisecond,
		Backoff:      5 * time.Millisecond,
	})
	return consumer.Run(ctx)
}

func TestParseJob(t *testing.T) {
	job, err := ParseJob([]byte(`{"jobId":"j1","url":"https://example.com","userId":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, models.JobDescriptor{JobID: "j1", URL: "https://example.com", UserID: "u1"}, job)

	_, err = ParseJob([]byte("not-json"))
	assert.ErrorIs(t, err, apperrors.ErrMalformedMessage)
}

func TestConsumer_MalformedMessageIsSkipped(t *testing.T) {
	queue := newFakeQueue(
		popResult{payload: []byte("not-json")},
		popResult{payload: []byte(`{"jobId":"j1","url":"https://example.com","userId":"u1"}`)},
	)
	handler := &recordingHandler{}

	require.NoError(t, runConsumer(t, queue, handler, ConsumerModeBlocking))

	jobs := handler.received()
	require.Len(t, jobs, 1)
	assert.Equal(t, "j1", jobs[0].JobID)
}

func TestConsumer_PreservesQueueOrder(t *testing.T) {
	queue := newFakeQueue(
		popResult{payload: []byte(`{"jobId":"a","url":"https://a.example"}`)},
		popResult{payload: []byte(`{"jobId":"b","url":"https://b.example"}`)},
		popResult{payload: []byte(`{"jobId":"c","url":"https://c.example"}`)},
	)
	handler := &recordingHandler{}

	require.NoError(t, runConsumer(t, queue, handler, ConsumerModeBlocking))

	jobs := handler.received()
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{jobs[0].JobID, jobs[1].JobID, jobs[2].JobID})
}

func TestConsumer_ModeSelectsPop(t *testing.T) {
	blocking := newFakeQueue(popResult{payload: []byte(`{"jobId":"a","url":"https://a.example"}`)})
	require.NoError(t, runConsumer(t, blocking, &recordingHandler{}, ConsumerModeBlocking))
	assert.Positive(t, blocking.brpops)
	assert.Zero(t, blocking.rpops)

	polling := newFakeQueue(popResult{payload: []byte(`{"jobId":"a","url":"https://a.example"}`)})
	require.NoError(t, runConsumer(t, polling, &recordingHandler{}, ConsumerModePolling))
	assert.Positive(t, polling.rpops)
	assert.Zero(t, polling.brpops)
}

func TestConsumer_TransientErrorBacksOffAndContinues(t *testing.T) {
	queue := newFakeQueue(
		popResult{err: errors.New("connection reset")},
		popResult{payload: []byte(`{"jobId":"j1","url":"https://example.com"}`)},
	)
	handler := &recordingHandler{}

	require.NoError(t, runConsumer(t, queue, handler, ConsumerModePolling))

	jobs := handler.received()
	require.Len(t, jobs, 1)
	assert.Equal(t, "j1", jobs[0].JobID)
}

func TestConsumer_StartupConnectionFailure(t *testing.T) {
	queue := newFakeQueue()
	queue.pingErr = errors.New("dial tcp: connection refused")
	handler := &recordingHandler{}

	err := runConsumer(t, queue, handler, ConsumerModeBlocking)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrQueueConnection)
	assert.Zero(t, queue.brpops)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	consumer := NewQueueConsumer(newFakeQueue(), &recordingHandler{}, ConsumerConfig{Mode: ConsumerModePolling})
	assert.NoError(t, consumer.Run(ctx))
}

func TestConsumer_DrivesProcessorEndToEnd(t *testing.T) {
	f := newProcessorFixture(threeParagraphs())
	queue := newFakeQueue(
		popResult{payload: []byte("not-json")},
		popResult{payload: []byte(`{"jobId":"j1","url":"https://example.com/a","userId":"u1"}`)},
	)

	require.NoError(t, runConsumer(t, queue, f.proc, ConsumerModeBlocking))

	require.Len(t, f.vectors.upserts, 1)
	assert.Len(t, f.vectors.upserts[0], 3)
	assert.Len(t, f.docs.statuses("j1"), 2)
}

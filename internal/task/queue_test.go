package task

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestJob() job {
	return job{taskID: uuid.New(), kind: "test", args: map[string]any{"n": 1}}
}

func TestEnqueueDepth(t *testing.T) {
	q := newJobQueue(4, setupTestLogger())

	assert.Zero(t, q.depth())

	assert.NoError(t, q.enqueue(newTestJob()))
	assert.NoError(t, q.enqueue(newTestJob()))
	assert.Equal(t, 2, q.depth())
}

func TestEnqueueFull(t *testing.T) {
	q := newJobQueue(2, setupTestLogger())

	assert.NoError(t, q.enqueue(newTestJob()))
	assert.NoError(t, q.enqueue(newTestJob()))

	err := q.enqueue(newTestJob())
	assert.ErrorIs(t, err, ErrQueueFull)

	// Drain one slot and the queue accepts again.
	<-q.jobs
	assert.NoError(t, q.enqueue(newTestJob()))
}

func TestEnqueueAfterClose(t *testing.T) {
	q := newJobQueue(4, setupTestLogger())

	first := newTestJob()
	assert.NoError(t, q.enqueue(first))

	q.close()

	err := q.enqueue(newTestJob())
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Queued jobs are still drainable after close.
	got := <-q.jobs
	assert.Equal(t, first.taskID, got.taskID)

	select {
	case _, ok := <-q.jobs:
		assert.False(t, ok, "channel should be closed once drained")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for closed channel read")
	}
}

func TestFIFOOrder(t *testing.T) {
	q := newJobQueue(8, setupTestLogger())

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		j := newTestJob()
		ids[i] = j.taskID
		assert.NoError(t, q.enqueue(j))
	}

	for i := range ids {
		got := <-q.jobs
		assert.Equal(t, ids[i], got.taskID, "job %d out of order", i)
	}
}

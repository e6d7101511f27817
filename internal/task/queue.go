package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Common errors returned by the job queue.
var (
	ErrQueueClosed = errors.New("job queue is closed")
	ErrQueueFull   = errors.New("job queue is full")
)

// job is one queued unit of work: the task it belongs to plus the inputs
// the executor needs.
type job struct {
	taskID uuid.UUID
	kind   string
	args   map[string]any
}

// jobQueue is a bounded FIFO queue of jobs built on a buffered channel.
// Enqueue never blocks; a full queue is reported to the caller instead.
// The mutex serializes sends against close so a late enqueue can never
// hit a closed channel.
type jobQueue struct {
	mu     sync.Mutex
	jobs   chan job
	logger *slog.Logger
	closed bool
}

func newJobQueue(size int, logger *slog.Logger) *jobQueue {
	if size <= 0 {
		size = 100
	}
	return &jobQueue{
		jobs:   make(chan job, size),
		logger: logger,
	}
}

// enqueue adds a job to the queue. Returns ErrQueueClosed after close and
// ErrQueueFull when the buffer has no room.
func (q *jobQueue) enqueue(j job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- j:
		q.logger.Debug("job enqueued",
			"task_id", j.taskID,
			"kind", j.kind,
			"queue_len", len(q.jobs),
			"queue_cap", cap(q.jobs))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.jobs))
	}
}

// depth reports how many jobs are waiting to be picked up.
func (q *jobQueue) depth() int {
	return len(q.jobs)
}

// close prevents further submission. Queued jobs can still be drained.
func (q *jobQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.jobs)
		q.logger.Info("job queue closed")
	}
}

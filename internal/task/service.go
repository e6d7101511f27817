package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds configuration for a TaskService.
type Config struct {
	// WorkerCount determines how many concurrent workers process jobs.
	// One worker (the default) gives strict FIFO processing; with more
	// than one, completion order is unspecified.
	WorkerCount int

	// QueueSize is the buffer size of the in-memory job queue.
	QueueSize int

	// StopTimeout bounds how long Stop waits for workers to exit.
	StopTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount: 1,
		QueueSize:   100,
		StopTimeout: 5 * time.Second,
	}
}

// TaskService owns the job queue, the worker goroutines, and the task
// directory. One instance lives in the application struct; handlers hold a
// reference and never touch the internals directly. There is no ambient
// global state.
//
// Task records are never deleted, so the directory grows for the life of
// the process. Queue state is not persisted: jobs still queued at shutdown
// are dropped.
type TaskService struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]*Task
	queue    *jobQueue
	executor Executor

	config  Config
	logger  *slog.Logger
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTaskService creates a TaskService with the given configuration. The
// executor must be injected with SetExecutor before Start for jobs to
// succeed; without one every job resolves to a failed task rather than a
// crash.
func NewTaskService(config Config, logger *slog.Logger) *TaskService {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 5 * time.Second
	}

	svcLogger := logger.With("component", "task_service")
	return &TaskService{
		tasks:  make(map[uuid.UUID]*Task),
		queue:  newJobQueue(config.QueueSize, svcLogger),
		config: config,
		logger: svcLogger,
	}
}

// SetExecutor injects the function that performs each job's work.
func (s *TaskService) SetExecutor(fn Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = fn
}

// Create records a new task in state queued and enqueues the job. It
// returns the generated task ID immediately and never blocks on job
// execution. If the queue is full the record is withdrawn and an error
// wrapping ErrQueueFull is returned.
func (s *TaskService) Create(kind string, args map[string]any) (uuid.UUID, error) {
	id := uuid.New()

	record := &Task{
		ID:        id,
		Kind:      kind,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.tasks[id] = record
	s.mu.Unlock()

	// Args are copied into the job so later caller mutation cannot race
	// the worker.
	err := s.queue.enqueue(job{taskID: id, kind: kind, args: cloneMap(args)})
	if err != nil {
		s.mu.Lock()
		delete(s.tasks, id)
		s.mu.Unlock()
		return uuid.Nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	s.logger.Info("task created", "task_id", id, "kind", kind)
	return id, nil
}

// Get returns a snapshot of the task with the given ID, or ok=false if no
// such task is tracked.
func (s *TaskService) Get(id uuid.UUID) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return record.snapshot(), true
}

// List returns snapshots of all tracked tasks keyed by ID, plus the
// current queue depth.
func (s *TaskService) List() (map[string]Task, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Task, len(s.tasks))
	for id, record := range s.tasks {
		out[id.String()] = record.snapshot()
	}
	return out, s.queue.depth()
}

// QueueDepth reports how many jobs are waiting for a worker.
func (s *TaskService) QueueDepth() int {
	return s.queue.depth()
}

// Start launches the worker goroutines. Calling Start while the service is
// already running is a logged no-op.
func (s *TaskService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("task workers already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("task workers started", "worker_count", s.config.WorkerCount)
}

// Stop signals shutdown, waits up to StopTimeout for workers to exit,
// and closes the queue so later Create calls are rejected. An in-flight
// job finishes before its worker observes the signal; jobs still queued
// stay unprocessed.
func (s *TaskService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("stopping task workers")
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("task workers stopped")
	case <-time.After(s.config.StopTimeout):
		s.logger.Warn("timed out waiting for task workers to stop",
			"timeout", s.config.StopTimeout)
	}

	s.queue.close()
}

// worker pulls jobs off the queue until the context is cancelled. A panic
// escaping the per-job boundary is caught here so the worker keeps running
// for as long as the process is alive.
func (s *TaskService) worker(ctx context.Context, id int) {
	defer s.wg.Done()

	s.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("stopping worker", "worker_id", id)
			return
		case j, ok := <-s.queue.jobs:
			if !ok {
				s.logger.Debug("job queue closed, stopping worker", "worker_id", id)
				return
			}
			s.safeRunJob(j, id)
		}
	}
}

// safeRunJob keeps worker-loop bugs from killing the loop: anything that
// escapes runJob's own failure boundary is logged and swallowed.
func (s *TaskService) safeRunJob(j job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("worker loop error",
				"panic", r,
				"task_id", j.taskID,
				"worker_id", workerID)
		}
	}()
	s.runJob(j, workerID)
}

// runJob executes one job inside the per-job failure boundary. The
// executor runs with a background context: cancellation of in-flight jobs
// is not supported, a dequeued job runs to completion or failure.
func (s *TaskService) runJob(j job, workerID int) {
	logger := s.logger.With("task_id", j.taskID, "kind", j.kind, "worker_id", workerID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", "panic", r)
			s.failTask(j.taskID, fmt.Sprintf("panic: %v", r))
		}
	}()

	s.markProcessing(j.taskID)
	logger.Info("processing task")

	s.mu.Lock()
	executor := s.executor
	s.mu.Unlock()

	if executor == nil {
		logger.Error("no task executor set")
		s.failTask(j.taskID, "no task executor set")
		return
	}

	result, err := executor(context.Background(), j.kind, j.args)
	if err != nil {
		logger.Error("task execution failed", "error", err)
		s.failTask(j.taskID, err.Error())
		return
	}

	s.completeTask(j.taskID, result)
	logger.Info("task completed successfully")
}

// markProcessing transitions a queued task to processing and stamps
// started_at once.
func (s *TaskService) markProcessing(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tasks[id]
	if !ok || record.Status != StatusQueued {
		return
	}
	record.Status = StatusProcessing
	now := time.Now().UTC()
	record.StartedAt = &now
}

// completeTask transitions a processing task to completed and stores its
// result. Result and completed_at are write-once.
func (s *TaskService) completeTask(id uuid.UUID, result map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tasks[id]
	if !ok || record.Status != StatusProcessing {
		return
	}
	record.Status = StatusCompleted
	now := time.Now().UTC()
	record.CompletedAt = &now
	record.Result = cloneMap(result)
}

// failTask transitions a processing task to failed, storing the error
// message and a structured result mirroring it.
func (s *TaskService) failTask(id uuid.UUID, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tasks[id]
	if !ok || record.Status == StatusCompleted || record.Status == StatusFailed {
		return
	}
	record.Status = StatusFailed
	now := time.Now().UTC()
	record.CompletedAt = &now
	record.Error = errMsg
	record.Result = map[string]any{
		"status": string(StatusFailed),
		"error":  errMsg,
	}
}

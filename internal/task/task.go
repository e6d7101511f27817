// Package task implements the asynchronous job execution core: a bounded
// FIFO queue feeding background workers, and a task directory that tracks
// every submitted job through its lifecycle. Callers submit a job kind plus
// arguments, get a task ID back immediately, and poll for status while the
// injected executor does the slow work (script generation, rendering,
// upload) off the request path.
package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task.
type Status string

// Possible task status values. A task only ever moves forward:
// queued → processing → (completed | failed).
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task kind constants for the jobs the automation engine executes.
const (
	KindCreateVideo      = "create_video"
	KindCreateVideoBatch = "create_video_batch"
)

// Executor performs the actual work for a job. It must be synchronous from
// the worker's perspective and signal failure through the returned error
// rather than a partial result.
type Executor func(ctx context.Context, kind string, args map[string]any) (map[string]any, error)

// Task is one submitted unit of asynchronous work. The directory inside
// TaskService owns all Task records; everything handed to callers is a
// deep copy, so a snapshot can be inspected or serialized freely without
// racing the worker.
type Task struct {
	ID          uuid.UUID      `json:"id"`
	Kind        string         `json:"kind"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// snapshot returns a deep copy of the task record.
func (t *Task) snapshot() Task {
	out := *t
	if t.StartedAt != nil {
		v := *t.StartedAt
		out.StartedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		out.CompletedAt = &v
	}
	out.Result = cloneMap(t.Result)
	return out
}

// cloneMap deep-copies a JSON-shaped map.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mwarren/clipforge/internal/api/shared"
	"github.com/mwarren/clipforge/internal/task"
)

// TaskHandler exposes the asynchronous task service over HTTP.
type TaskHandler struct {
	tasks  *task.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *task.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With("component", "task_handler"),
	}
}

// CreateTaskRequest is the payload for POST /api/tasks.
type CreateTaskRequest struct {
	Kind string         `json:"kind" validate:"required,oneof=create_video create_video_batch"`
	Args map[string]any `json:"args"`
}

// CreateTaskResponse acknowledges an accepted task.
type CreateTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// ListTasksResponse is the payload for GET /api/tasks.
type ListTasksResponse struct {
	Tasks      map[string]task.Task `json:"tasks"`
	QueueDepth int                  `json:"queue_depth"`
}

// CreateTask enqueues a new job and returns 202 immediately. A full queue
// maps to 503: the client may retry once workers drain the backlog.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeValid(r, &req); err != nil {
		if errors.Is(err, shared.ErrMalformedBody) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		} else {
			shared.RespondWithError(w, r, http.StatusBadRequest,
				"kind must be create_video or create_video_batch")
		}
		return
	}

	id, err := h.tasks.Create(req.Kind, req.Args)
	if err != nil {
		if errors.Is(err, task.ErrQueueFull) {
			shared.RespondWithError(w, r, http.StatusServiceUnavailable,
				"Task queue is full, try again later")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to create task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, CreateTaskResponse{
		TaskID: id.String(),
		Status: string(task.StatusQueued),
	})
}

// GetTask returns the current snapshot of one task.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	snapshot, ok := h.tasks.Get(id)
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snapshot)
}

// ListTasks returns all tracked tasks plus the current queue depth.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, depth := h.tasks.List()
	shared.RespondWithJSON(w, r, http.StatusOK, ListTasksResponse{
		Tasks:      tasks,
		QueueDepth: depth,
	})
}

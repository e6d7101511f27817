package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwarren/clipforge/internal/affiliate"
	"github.com/mwarren/clipforge/internal/auth"
	"github.com/mwarren/clipforge/internal/config"
	"github.com/mwarren/clipforge/internal/engine"
	"github.com/mwarren/clipforge/internal/generation"
	"github.com/mwarren/clipforge/internal/history"
	"github.com/mwarren/clipforge/internal/task"
	"github.com/mwarren/clipforge/internal/upload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// --- pipeline stubs for the dashboard handler ---

type fakeGenerator struct{}

func (fakeGenerator) GenerateScript(ctx context.Context, topic string) (*generation.Script, error) {
	return &generation.Script{Title: "T: " + topic, Body: "b", Description: "d"}, nil
}

type fakeSynth struct{}

func (fakeSynth) Synthesize(ctx context.Context, text, outPath string) (string, error) {
	return outPath, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, audioPath, title, outPath string) (string, error) {
	return outPath, nil
}

type fakeUploader struct{}

func (fakeUploader) Upload(ctx context.Context, videoPath string, meta upload.Metadata) (string, error) {
	return "https://www.youtube.com/watch?v=x", nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []history.RunRecord
}

func (m *fakeHistory) Add(ctx context.Context, record *history.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.CreatedAt = time.Now().UTC()
	m.records = append(m.records, *record)
	return nil
}

func (m *fakeHistory) Recent(ctx context.Context, limit int) ([]history.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]history.RunRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *fakeHistory) Last(ctx context.Context) (*history.RunRecord, error) {
	records, _ := m.Recent(ctx, 1)
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (m *fakeHistory) Stats(ctx context.Context) (history.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := history.Stats{TotalRuns: len(m.records)}
	for _, r := range m.records {
		if r.Status == history.RunStatusSuccess {
			stats.Successful++
		} else {
			stats.Failed++
		}
	}
	return stats, nil
}

func (m *fakeHistory) Clear(ctx context.Context) error { return nil }
func (m *fakeHistory) Close() error                    { return nil }

func newTestEngine(t *testing.T, store history.Store) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.Dependencies{
		Logger:      testLogger(),
		Generator:   fakeGenerator{},
		Synthesizer: fakeSynth{},
		Renderer:    fakeRenderer{},
		Uploader:    fakeUploader{},
		Links:       affiliate.NewLinkBuilder("tag-20"),
		History:     store,
		Settings:    engine.NewSettings("technology", "daily", "unlisted"),
		OutputDir:   t.TempDir(),
	})
	require.NoError(t, err)
	return eng
}

// --- auth handler ---

func newAuthHandler(t *testing.T, password string) *AuthHandler {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	cfg := config.AuthConfig{
		JWTSecret:            "0123456789abcdef0123456789abcdef",
		AdminPasswordHash:    hash,
		TokenLifetimeMinutes: 60,
	}
	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)
	return NewAuthHandler(tokens, cfg, testLogger())
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestLoginSuccess(t *testing.T) {
	h := newAuthHandler(t, "correct horse battery staple")

	w := postJSON(t, h.Login, "/api/auth/login", LoginRequest{Password: "correct horse battery staple"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 60, resp.ExpiresInMinutes)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newAuthHandler(t, "correct horse battery staple")

	w := postJSON(t, h.Login, "/api/auth/login", LoginRequest{Password: "guess"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginMissingPassword(t *testing.T) {
	h := newAuthHandler(t, "correct horse battery staple")

	w := postJSON(t, h.Login, "/api/auth/login", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginMalformedBody(t *testing.T) {
	h := newAuthHandler(t, "correct horse battery staple")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	h.Login(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- task handler ---

func newTaskHandler(t *testing.T, queueSize int) (*TaskHandler, *task.TaskService) {
	t.Helper()
	svc := task.NewTaskService(task.Config{
		WorkerCount: 1,
		QueueSize:   queueSize,
		StopTimeout: time.Second,
	}, testLogger())
	t.Cleanup(svc.Stop)
	return NewTaskHandler(svc, testLogger()), svc
}

func TestCreateTaskAccepted(t *testing.T) {
	h, _ := newTaskHandler(t, 10)

	w := postJSON(t, h.CreateTask, "/api/tasks", CreateTaskRequest{
		Kind: task.KindCreateVideo,
		Args: map[string]any{"topic": "gadgets"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp CreateTaskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, "queued", resp.Status)
}

func TestCreateTaskInvalidKind(t *testing.T) {
	h, _ := newTaskHandler(t, 10)

	w := postJSON(t, h.CreateTask, "/api/tasks", CreateTaskRequest{Kind: "make_coffee"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTaskQueueFull(t *testing.T) {
	h, _ := newTaskHandler(t, 1)

	// Workers never started, so the first task occupies the whole queue.
	w := postJSON(t, h.CreateTask, "/api/tasks", CreateTaskRequest{Kind: task.KindCreateVideo})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = postJSON(t, h.CreateTask, "/api/tasks", CreateTaskRequest{Kind: task.KindCreateVideo})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetTask(t *testing.T) {
	h, svc := newTaskHandler(t, 10)

	id, err := svc.Create(task.KindCreateVideo, nil)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Get("/api/tasks/{id}", h.GetTask)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+id.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot task.Task
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
	assert.Equal(t, id, snapshot.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/tasks/9b2e57a1-5bb6-4f6a-9ad1-111111111111", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tasks/not-a-uuid", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTasks(t *testing.T) {
	h, svc := newTaskHandler(t, 10)

	_, err := svc.Create(task.KindCreateVideo, nil)
	require.NoError(t, err)
	_, err = svc.Create(task.KindCreateVideo, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	h.ListTasks(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListTasksResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Tasks, 2)
	assert.Equal(t, 2, resp.QueueDepth)
}

// --- dashboard handler ---

func newDashboardHandler(t *testing.T) (*DashboardHandler, *fakeHistory) {
	t.Helper()
	store := &fakeHistory{}
	return NewDashboardHandler(newTestEngine(t, store), store, testLogger()), store
}

func TestGetHistory(t *testing.T) {
	h, store := newDashboardHandler(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Add(context.Background(), &history.RunRecord{
			Title:  fmt.Sprintf("run-%d", i),
			Status: history.RunStatusSuccess,
		}))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=2", nil)
	w := httptest.NewRecorder()
	h.GetHistory(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HistoryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Runs, 2)
	assert.Equal(t, "run-2", resp.Runs[0].Title)
}

func TestGetHistoryEmpty(t *testing.T) {
	h, _ := newDashboardHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()
	h.GetHistory(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())
}

func TestGetHistoryBadLimit(t *testing.T) {
	h, _ := newDashboardHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=banana", nil)
	w := httptest.NewRecorder()
	h.GetHistory(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStatus(t *testing.T) {
	h, _ := newDashboardHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	h.GetStatus(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, true, status["upload_enabled"])
	assert.Contains(t, status, "settings")
}

func TestGetConfig(t *testing.T) {
	h, _ := newDashboardHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	w := httptest.NewRecorder()
	h.GetConfig(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var settings map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&settings))
	assert.Equal(t, "technology", settings[engine.SettingTopic])
}

func TestUpdateConfig(t *testing.T) {
	h, _ := newDashboardHandler(t)

	w := postJSON(t, h.UpdateConfig, "/api/config", map[string]string{
		engine.SettingTopic:   "cooking",
		engine.SettingPrivacy: "public",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var settings map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&settings))
	assert.Equal(t, "cooking", settings[engine.SettingTopic])
	assert.Equal(t, "public", settings[engine.SettingPrivacy])
}

func TestUpdateConfigRejectsUnknownKey(t *testing.T) {
	h, _ := newDashboardHandler(t)

	w := postJSON(t, h.UpdateConfig, "/api/config", map[string]string{"worker_count": "9"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateConfigEmptyBody(t *testing.T) {
	h, _ := newDashboardHandler(t)

	w := postJSON(t, h.UpdateConfig, "/api/config", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mwarren/clipforge/internal/api/shared"
	"github.com/mwarren/clipforge/internal/engine"
	"github.com/mwarren/clipforge/internal/history"
)

// DashboardHandler serves the read-mostly dashboard endpoints: run
// history, engine status, and runtime configuration.
type DashboardHandler struct {
	engine  *engine.Engine
	history history.Store
	logger  *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(eng *engine.Engine, store history.Store, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		engine:  eng,
		history: store,
		logger:  logger.With("component", "dashboard_handler"),
	}
}

// HistoryResponse is the payload for GET /api/history.
type HistoryResponse struct {
	Runs []history.RunRecord `json:"runs"`
}

// GetHistory returns recent runs, newest first. An optional limit query
// parameter caps the count; the default is 20.
func (h *DashboardHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	runs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load run history", err)
		return
	}
	if runs == nil {
		runs = []history.RunRecord{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{Runs: runs})
}

// GetStatus returns the engine status summary.
func (h *DashboardHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Status(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load status", err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// GetConfig returns the runtime-mutable settings.
func (h *DashboardHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.engine.Settings().Snapshot())
}

// UpdateConfig applies setting changes. The whole update is rejected when
// any key is unknown or any value is invalid.
func (h *DashboardHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var changes map[string]string
	if err := shared.DecodeJSON(r, &changes); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if len(changes) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "No settings provided")
		return
	}

	if err := h.engine.Settings().Update(changes); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.InfoContext(r.Context(), "settings updated", "keys", settingKeys(changes))
	shared.RespondWithJSON(w, r, http.StatusOK, h.engine.Settings().Snapshot())
}

func settingKeys(changes map[string]string) []string {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	return keys
}

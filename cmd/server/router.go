package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mwarren/clipforge/internal/api"
	apiMiddleware "github.com/mwarren/clipforge/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(app.tokenService, app.config.Auth, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokenService)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	dashboardHandler := api.NewDashboardHandler(app.engine, app.historyStore, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoint (public)
		r.Post("/auth/login", authHandler.Login)

		// Read endpoints (public within the dashboard network)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Get("/history", dashboardHandler.GetHistory)
		r.Get("/status", dashboardHandler.GetStatus)
		r.Get("/config", dashboardHandler.GetConfig)

		// Mutating endpoints require an admin token
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/tasks", taskHandler.CreateTask)
			r.Put("/config", dashboardHandler.UpdateConfig)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

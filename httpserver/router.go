// Package httpserver exposes the conversation service over HTTP: query and
// upload endpoints that drive turns, transcript management, and the tool
// catalog, plus health and Prometheus endpoints.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/relaydeck/convod/session"
	"github.com/relaydeck/convod/tools"
)

// NewRouter creates the chi router for the service.
func NewRouter(router *session.Router, invoker tools.Invoker, logger zerolog.Logger) *chi.Mux {
	h := &handlers{router: router, tools: invoker}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", h.handleQuery)
		r.Post("/file", h.handleFile)
		r.Post("/tool", h.handleToolCall)
		r.Get("/tools", h.handleListTools)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.handleListConversations)
			r.Get("/{conversationID}", h.handleGetConversation)
			r.Delete("/{conversationID}", h.handleDeleteConversation)
		})
	})

	return r
}

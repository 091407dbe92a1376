// Package api exposes one carry-over session over a local HTTP API.
package api

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter creates the chi router with all routes and middleware
func NewRouter(srv *Server, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	r.Get("/health", srv.Health)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", srv.GetSession)
		r.Post("/reload", srv.Reload)
		r.Put("/source", srv.SetSource)
		r.Put("/destination", srv.SetDestination)
		r.Put("/items/{id}", srv.SetItem)
		r.Post("/select-all", srv.SelectAll)
		r.Post("/select-none", srv.SelectNone)
		r.Post("/carryover", srv.CarryOver)
	})

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", srv.ListRuns)
		r.Get("/{id}", srv.GetRun)
	})

	return r
}

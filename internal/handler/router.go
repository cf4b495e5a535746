package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the record API under /api, the catalog under
// /v1/catalog and the health check. extra mounts additional routes, such as
// the console WebSocket, before the router is returned.
func NewRouter(h *RecordHandler, logger *slog.Logger, extra ...func(chi.Router)) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Recovery(logger))
	r.Use(Logging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", h.Routes)
	r.Get("/v1/catalog", h.Kinds)
	r.Get("/v1/catalog/{kind}", h.Catalog)
	for _, fn := range extra {
		fn(r)
	}
	return r
}

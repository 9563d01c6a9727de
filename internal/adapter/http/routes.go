package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/connecthq/connect-core/internal/adapter/ws"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, hub *ws.Hub) {
	r.Get("/health", h.Health)
	r.Get("/ws", hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Post("/ask", h.Ask)
		r.Get("/stats", h.Stats)
		r.Get("/queries/recent", h.RecentQueries)
	})
}

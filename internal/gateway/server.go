package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", promhttp.Handler())

	// Status carries chat identifiers; gate it when a token is configured.
	r.Group(func(r chi.Router) {
		if g.cfg.AuthToken != "" {
			r.Use(authMiddleware(g.cfg.AuthToken))
		}
		r.Get("/status", g.handleStatus())
	})

	return r
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/handlers"
)

func init() { Register("probes", registerProbes) }

// Probes stay open so orchestrators can reach them.
func registerProbes(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.Get("/readyz", handlers.Readyz(d))
}

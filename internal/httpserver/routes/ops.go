package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/handlers"
)

func init() { Register("ops", registerOps, opsNetwork) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/infra", handlers.Infra(d))
	r.Method("GET", "/metrics", d.Metrics.Handler())
}

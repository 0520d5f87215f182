package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/handlers"
)

func init() { Register("reload", registerReload, opsNetwork, knownHost) }

func registerReload(r chi.Router, d deps.Deps) {
	r.Post("/reload", handlers.Reload(d))
}

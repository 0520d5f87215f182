package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/handlers"
)

func init() { Register("convert", registerConvert, opsNetwork, knownHost, convertQuota) }

func registerConvert(r chi.Router, d deps.Deps) {
	r.Post("/api/convert", handlers.Convert(d))
}

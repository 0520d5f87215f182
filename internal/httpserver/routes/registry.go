// Package routes holds the route table. Each file registers its group from
// init, together with the guards that protect it.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
	// Guard builds a middleware once the server dependencies are known.
	Guard func(d deps.Deps) Middleware
)

type group struct {
	name   string
	reg    Registrar
	guards []Guard
}

var registry []group

// Register adds a route group. Guards apply in order to every route of the
// group.
func Register(name string, reg Registrar, guards ...Guard) {
	registry = append(registry, group{name: name, reg: reg, guards: guards})
}

// RegisterAll mounts every group on r. It is called once from server.New().
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, g := range registry {
		target := r
		if len(g.guards) > 0 {
			mws := make([]Middleware, 0, len(g.guards))
			for _, guard := range g.guards {
				mws = append(mws, guard(d))
			}
			target = r.With(mws...)
		}
		g.reg(target, d)
		d.Logger.Debug("route group mounted",
			logger.String("group", g.name),
			logger.Int("guards", len(g.guards)))
	}
}

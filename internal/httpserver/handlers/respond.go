package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

// writeJSON sends v with status. Ops responses are never cached.
func writeJSON(w http.ResponseWriter, d deps.Deps, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

func writeText(w http.ResponseWriter, d deps.Deps, msg string) {
	if _, err := w.Write([]byte(msg)); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

// nonNil keeps empty lists as [] rather than null in JSON output.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

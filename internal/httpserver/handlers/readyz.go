package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready   bool `json:"ready"`
	Discord bool `json:"discord"`
}

// Readyz is ready once the Discord gateway is connected. Without a bot
// (tests, API-only runs) it is always ready.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := d.BotConnected == nil || d.BotConnected()

		status := http.StatusOK
		if !connected {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, d, status, readyzResponse{Ready: connected, Discord: connected})
	}
}

package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

// Reload triggers a manual reload of the branding file.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ReloadTrigger == nil {
			w.WriteHeader(http.StatusNotFound)
			writeText(w, d, "ℹ️ No branding file configured, nothing to reload\n")
			return
		}

		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual branding reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			writeText(w, d, "✅ Reload triggered successfully\n")
		default:
			d.Logger.Warn("branding reload already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			writeText(w, d, "⏳ Reload already in progress, please wait\n")
		}
	}
}

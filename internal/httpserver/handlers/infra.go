package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool   `json:"ok"`
	Entries    *int   `json:"entries,omitempty"`
	LastReload string `json:"last_reload,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Impact     string `json:"impact,omitempty"`
	Error      string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"discord":   checkDiscord(d),
			"redis":     checkRedis(r.Context(), d),
			"branding":  checkBranding(d),
			"ratelimit": counter(d.TrackedUsers, "in-memory"),
			"cache":     counter(d.CacheEntries, "otter"),
		}

		writeJSON(w, d, http.StatusOK, infraResponse{
			Status:     determineStatus(components),
			Components: components,
		})
	}
}

func determineStatus(components map[string]componentStatus) string {
	if discord, exists := components["discord"]; exists && !discord.OK {
		return "critical" // no gateway = no conversions
	}

	// Redis and branding are optional, losing them only degrades service
	for _, name := range []string{"redis", "branding"} {
		if c, exists := components[name]; exists && !c.OK {
			return "degraded"
		}
	}

	return "operational"
}

func checkDiscord(d deps.Deps) componentStatus {
	if d.BotConnected == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}
	if !d.BotConnected() {
		return componentStatus{OK: false, Impact: "messages-not-handled", Error: "gateway disconnected"}
	}
	return componentStatus{OK: true, Mode: "connected"}
}

func checkRedis(parent context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "memory-cache-only",
		}
	}

	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "memory-cache-only",
			Error:  "unreachable",
		}
	}

	entries, err := d.Store.CountResolutions(ctx)
	status := componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "shared-resolution-cache",
	}
	if err == nil {
		status.Entries = &entries
	}
	return status
}

func checkBranding(d deps.Deps) componentStatus {
	if d.Branding == nil {
		return componentStatus{OK: true, Mode: "defaults"}
	}

	entries := d.Branding.Count()
	lastReload := d.Branding.GetLastReload()
	lastReloadStr := "never"
	if !lastReload.IsZero() {
		lastReloadStr = lastReload.Format("2006-01-02 15:04:05")
	}

	mode := "file"
	if d.BrandingFile == "" {
		mode = "defaults"
	}
	return componentStatus{
		// a configured file that never loaded is a problem, no file is not
		OK:         d.BrandingFile == "" || !lastReload.IsZero(),
		Entries:    &entries,
		LastReload: lastReloadStr,
		Mode:       mode,
	}
}

func counter(size func() int, mode string) componentStatus {
	status := componentStatus{OK: true, Mode: mode}
	if size != nil {
		n := size()
		status.Entries = &n
	}
	return status
}

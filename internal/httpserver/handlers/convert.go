package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
)

// maxConvertBody caps the request body. A Discord message is at most 4000
// characters, so this leaves plenty of room.
const maxConvertBody = 64 << 10

type convertRequest struct {
	Text string `json:"text"`
}

type convertLink struct {
	Original            string `json:"original"`
	Canonical           string `json:"canonical"`
	Marketplace         string `json:"marketplace"`
	SourceAgent         string `json:"source_agent,omitempty"`
	NeedsAffiliateParam bool   `json:"needs_affiliate_param"`
}

type convertButton struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Emoji string `json:"emoji,omitempty"`
}

type convertResponse struct {
	URLs         []string        `json:"urls"`
	Accepted     bool            `json:"accepted"`
	Valid        []convertLink   `json:"valid"`
	Invalid      []string        `json:"invalid"`
	Descriptions []string        `json:"descriptions"`
	Buttons      []convertButton `json:"buttons"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Convert runs the link pipeline on posted text. It applies the same
// all-or-nothing rule as the bot but no per-user spam tracking.
func Convert(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req convertRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConvertBody))
		if err := dec.Decode(&req); err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeJSON(w, d, status, errorResponse{Error: "invalid json body"})
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeJSON(w, d, http.StatusBadRequest, errorResponse{Error: "text is required"})
			return
		}

		conv := d.Converter.Convert(r.Context(), req.Text)

		resp := convertResponse{
			URLs:         nonNil(conv.URLs),
			Accepted:     conv.Result.Accepted(),
			Valid:        make([]convertLink, 0, len(conv.Result.Valid)),
			Invalid:      nonNil(conv.Result.Invalid),
			Descriptions: nonNil(conv.Descriptions),
			Buttons:      make([]convertButton, 0, len(conv.Buttons)),
		}
		for _, l := range conv.Result.Valid {
			resp.Valid = append(resp.Valid, convertLink{
				Original:            l.Original,
				Canonical:           l.Canonical,
				Marketplace:         l.Marketplace.Name(),
				SourceAgent:         l.SourceAgent,
				NeedsAffiliateParam: l.NeedsAffiliateParam,
			})
		}
		for _, b := range conv.Buttons {
			resp.Buttons = append(resp.Buttons, convertButton{Label: b.Label, URL: b.URL, Emoji: b.Emoji})
		}

		d.Logger.Debug("convert request",
			logger.Int("urls", len(resp.URLs)),
			logger.Bool("accepted", resp.Accepted))

		writeJSON(w, d, http.StatusOK, resp)
	}
}

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/linkwrap/internal/affiliate"
	"github.com/MrSnakeDoc/linkwrap/internal/agents"
	"github.com/MrSnakeDoc/linkwrap/internal/cache"
	"github.com/MrSnakeDoc/linkwrap/internal/convert"
	"github.com/MrSnakeDoc/linkwrap/internal/dispatch"
	"github.com/MrSnakeDoc/linkwrap/internal/fetch"
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver"
	"github.com/MrSnakeDoc/linkwrap/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkwrap/internal/index"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/metrics"
)

const (
	taobao  = "https://item.taobao.com/item.htm?id=42"
	weidian = "https://weidian.com/item.html?itemID=7"
	offer   = "https://detail.1688.com/offer/610.html"
)

// rewriteTransport sends every request to the fake agent server and keeps
// the original host in the Host header.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = rt.target.Scheme
	clone.URL.Host = rt.target.Host
	clone.Host = req.URL.Host
	return http.DefaultTransport.RoundTrip(clone)
}

// fakeAgents answers like the short-link and share APIs of a few agents.
func fakeAgents(hits *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case r.Host == "pandabuy.page.link" && r.URL.Path == "/abc":
			w.Header().Set("Location", "https://www.pandabuy.com/product?url="+url.QueryEscape(taobao))
			w.WriteHeader(http.StatusFound)
		case r.Host == "hoobuy.com" && r.URL.Path == "/api/share/resolve":
			_, _ = w.Write([]byte(`{"code":0,"data":{"origin_url":"` + weidian + `"}}`))
		case r.Host == "oopbuy.com":
			http.Error(w, "maintenance", http.StatusInternalServerError)
		case r.Host == "api.oopbuy.com" && r.URL.Path == "/share/origin":
			_, _ = w.Write([]byte(`{"url":"` + offer + `"}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func newRouter(t *testing.T, hits *atomic.Int32) http.Handler {
	t.Helper()

	srv := httptest.NewServer(fakeAgents(hits))
	t.Cleanup(srv.Close)
	target, _ := url.Parse(srv.URL)

	resolutions, err := cache.New(100, time.Minute, nil, logger.Nop())
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	t.Cleanup(resolutions.Close)

	m := metrics.New()
	client := fetch.New(fetch.Options{Transport: rewriteTransport{target: target}}, resolutions, logger.Nop(), m)
	table := agents.New(agents.Options{Resolver: client})

	branding := index.NewBrandingIndex()
	builder, err := affiliate.New(affiliate.Options{Code: "abc"}, branding, logger.Nop())
	if err != nil {
		t.Fatalf("affiliate.New() error = %v", err)
	}

	d := deps.Deps{
		Logger:              logger.Nop(),
		StartTime:           time.Now(),
		ConvertBurst:        100,
		ConvertRefillPerMin: 100,
		Converter:           convert.New(dispatch.New(table, 4, logger.Nop(), m), builder),
		Branding:            branding,
		Metrics:             m,
		CacheEntries:        resolutions.Size,
	}
	return httpserver.NewRouter(logger.Nop(), d, 10*time.Second)
}

type convertResult struct {
	Accepted bool `json:"accepted"`
	Valid    []struct {
		Original    string `json:"original"`
		Canonical   string `json:"canonical"`
		SourceAgent string `json:"source_agent"`
	} `json:"valid"`
	Invalid []string `json:"invalid"`
	Buttons []struct {
		URL string `json:"url"`
	} `json:"buttons"`
}

func post(t *testing.T, h http.Handler, text string) convertResult {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"text": text})
	req := httptest.NewRequest(http.MethodPost, "/api/convert", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/convert = %d: %s", rec.Code, rec.Body.String())
	}
	var res convertResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res
}

// TestConvertScenarios runs messages through the HTTP API, the dispatch
// engine, the agent strategies and the network client.
func TestConvertScenarios(t *testing.T) {
	kakobuy := "https://www.kakobuy.com/item/details?url=" + url.QueryEscape(weidian) + "&affcode=mine"

	tests := []struct {
		name          string
		text          string
		wantAccepted  bool
		wantCanonical []string
		wantAgents    []string
	}{
		{
			name:          "pandabuy short link follows the redirect",
			text:          "grab this https://pandabuy.page.link/abc",
			wantAccepted:  true,
			wantCanonical: []string{taobao},
			wantAgents:    []string{"pandabuy"},
		},
		{
			name:          "hoobuy share link through the primary api",
			text:          "https://hoobuy.com/share/xyz",
			wantAccepted:  true,
			wantCanonical: []string{weidian},
			wantAgents:    []string{"hoobuy"},
		},
		{
			name:          "oopbuy share link through the fallback api",
			text:          "https://oopbuy.com/share/xyz",
			wantAccepted:  true,
			wantCanonical: []string{offer},
			wantAgents:    []string{"oopbuy"},
		},
		{
			name:          "mixed agents and a direct link keep message order",
			text:          "https://cssbuy.com/item-taobao-42.html then " + kakobuy + " and " + offer + "?spm=1",
			wantAccepted:  true,
			wantCanonical: []string{taobao, weidian, offer},
			wantAgents:    []string{"cssbuy", "kakobuy", ""},
		},
		{
			name:         "one unsupported link rejects the whole message",
			text:         "https://cssbuy.com/item-taobao-42.html https://example.com/shop",
			wantAccepted: false,
		},
		{
			name:         "dead short link is unsupported",
			text:         "https://pandabuy.page.link/gone",
			wantAccepted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			res := post(t, newRouter(t, &hits), tt.text)

			if res.Accepted != tt.wantAccepted {
				t.Fatalf("accepted = %v, want %v (invalid %v)", res.Accepted, tt.wantAccepted, res.Invalid)
			}
			if !tt.wantAccepted {
				if len(res.Invalid) == 0 {
					t.Error("rejected message should list invalid urls")
				}
				if len(res.Buttons) != 0 {
					t.Error("rejected message should not build buttons")
				}
				return
			}
			if len(res.Valid) != len(tt.wantCanonical) {
				t.Fatalf("valid = %+v", res.Valid)
			}
			for i, v := range res.Valid {
				if v.Canonical != tt.wantCanonical[i] || v.SourceAgent != tt.wantAgents[i] {
					t.Errorf("valid[%d] = {%q, %q}, want {%q, %q}", i, v.Canonical, v.SourceAgent, tt.wantCanonical[i], tt.wantAgents[i])
				}
			}
			for i := 1; i < len(res.Buttons); i += 2 {
				if !strings.HasPrefix(res.Buttons[i].URL, "https://www.kakobuy.com/item/details?url=") {
					t.Errorf("redirect button %d = %q", i, res.Buttons[i].URL)
				}
			}
		})
	}
}

func TestKakobuyLinkKeepsSingleAffiliateCode(t *testing.T) {
	var hits atomic.Int32
	h := newRouter(t, &hits)

	res := post(t, h, "https://www.kakobuy.com/item/details?url="+url.QueryEscape(weidian)+"&affcode=mine")
	if !res.Accepted || len(res.Buttons) != 2 {
		t.Fatalf("result = %+v", res)
	}
	redirect := res.Buttons[1].URL
	if strings.Contains(redirect, "affcode=") {
		t.Errorf("redirect %q should not add a second affiliate code", redirect)
	}
	if hits.Load() != 0 {
		t.Errorf("offline strategy made %d network calls", hits.Load())
	}
}

func TestNetworkLookupsAreCached(t *testing.T) {
	var hits atomic.Int32
	h := newRouter(t, &hits)

	post(t, h, "https://hoobuy.com/share/xyz")
	first := hits.Load()
	if first == 0 {
		t.Fatal("first lookup should reach the agent api")
	}

	res := post(t, h, "https://hoobuy.com/share/xyz")
	if !res.Accepted || res.Valid[0].Canonical != weidian {
		t.Fatalf("cached result = %+v", res)
	}
	if hits.Load() != first {
		t.Errorf("hits = %d after a cached lookup, want %d", hits.Load(), first)
	}
}

package dispatch

import (
	"context"
	"net/url"
	"testing"

	"github.com/MrSnakeDoc/linkwrap/internal/agents"
	"github.com/MrSnakeDoc/linkwrap/internal/domain"
	"github.com/MrSnakeDoc/linkwrap/internal/logger"
	"github.com/MrSnakeDoc/linkwrap/internal/metrics"
)

func newEngine() *Engine {
	return New(agents.New(agents.Options{}), 2, logger.Nop(), metrics.New())
}

func TestProcessAll(t *testing.T) {
	e := newEngine()

	kakobuy := "https://www.kakobuy.com/item/details?url=" + url.QueryEscape("https://weidian.com/item.html?itemID=12345")
	cssbuy := "https://cssbuy.com/item-taobao-987654.html"
	direct := "https://detail.1688.com/offer/610947572360.html?spm=x"

	res := e.ProcessAll(context.Background(), []string{kakobuy, cssbuy, direct})
	if !res.Accepted() {
		t.Fatalf("ProcessAll() rejected batch, invalid = %v", res.Invalid)
	}
	if len(res.Valid) != 3 {
		t.Fatalf("valid = %d, want 3", len(res.Valid))
	}

	want := []struct {
		canonical string
		agent     string
	}{
		{"https://weidian.com/item.html?itemID=12345", "kakobuy"},
		{"https://item.taobao.com/item.htm?id=987654", "cssbuy"},
		{"https://detail.1688.com/offer/610947572360.html", ""},
	}
	for i, w := range want {
		got := res.Valid[i]
		if got.Canonical != w.canonical || got.SourceAgent != w.agent {
			t.Errorf("Valid[%d] = {%q, %q}, want {%q, %q}", i, got.Canonical, got.SourceAgent, w.canonical, w.agent)
		}
		if !got.NeedsAffiliateParam {
			t.Errorf("Valid[%d].NeedsAffiliateParam = false", i)
		}
	}
	if res.Valid[2].Original != direct || !res.Valid[2].IsDirect() {
		t.Errorf("direct link = %+v", res.Valid[2])
	}
}

func TestProcessAllAllOrNothing(t *testing.T) {
	e := newEngine()

	good := "https://item.taobao.com/item.htm?id=1"
	bad := "https://example.com/not-a-shop"

	res := e.ProcessAll(context.Background(), []string{good, bad})
	if res.Accepted() {
		t.Fatal("batch with an unsupported URL must be rejected")
	}
	if len(res.Valid) != 1 || len(res.Invalid) != 1 || res.Invalid[0] != bad {
		t.Errorf("ProcessAll() = %+v", res)
	}
}

func TestProcessAllTwoInvalid(t *testing.T) {
	e := newEngine()

	urls := []string{
		"https://cnfans.com/product/?shop_type=jd&id=1",
		"https://www.taobao.com/",
	}
	res := e.ProcessAll(context.Background(), urls)
	if len(res.Valid) != 0 {
		t.Errorf("valid = %v, want none", res.Valid)
	}
	if len(res.Invalid) != 2 || res.Invalid[0] != urls[0] || res.Invalid[1] != urls[1] {
		t.Errorf("invalid = %v, want %v in order", res.Invalid, urls)
	}
}

func TestProcessAllEmpty(t *testing.T) {
	res := newEngine().ProcessAll(context.Background(), nil)
	if res.Accepted() || len(res.Valid) != 0 || len(res.Invalid) != 0 {
		t.Errorf("ProcessAll(nil) = %+v", res)
	}
}

func TestProcessAllPreservesOrder(t *testing.T) {
	e := newEngine()

	var urls []string
	for _, id := range []string{"5", "4", "3", "2", "1", "9", "8"} {
		urls = append(urls, "https://item.taobao.com/item.htm?id="+id)
	}
	res := e.ProcessAll(context.Background(), urls)
	for i, link := range res.Valid {
		want := "https://item.taobao.com/item.htm?id=" + urls[i][len(urls[i])-1:]
		if link.Canonical != want {
			t.Errorf("Valid[%d] = %q, want %q", i, link.Canonical, want)
		}
	}
}

type panicParser struct{}

func (panicParser) Parse(context.Context, string) (domain.NormalizedLink, bool) {
	panic("boom")
}

func TestTryAgentRecoversPanic(t *testing.T) {
	e := newEngine()
	if _, ok := e.tryAgent(context.Background(), "broken", panicParser{}, "https://x.example"); ok {
		t.Error("tryAgent() with a panicking parser should report failure")
	}
}

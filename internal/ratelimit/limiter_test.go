package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/linkwrap/internal/domain"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func links(originals ...string) []domain.NormalizedLink {
	out := make([]domain.NormalizedLink, len(originals))
	for i, o := range originals {
		out[i] = domain.NormalizedLink{Original: o}
	}
	return out
}

func newLimiter(c *clock) *Limiter {
	return New(Options{Limit: 3, Window: 15 * time.Second, Now: c.Now})
}

func TestCheckSpamOnThirdOccurrence(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	l := newLimiter(c)
	u := links("https://item.taobao.com/item.htm?id=1")

	for i, want := range []bool{false, false, true, true} {
		if got := l.Check("alice", u); got != want {
			t.Errorf("Check() #%d = %v, want %v", i+1, got, want)
		}
		c.Advance(5 * time.Second)
	}
}

func TestCheckCountsLinksIndependently(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := newLimiter(c)

	if l.Check("bob", links("a", "b")) {
		t.Fatal("first message flagged")
	}
	if l.Check("bob", links("a", "c")) {
		t.Fatal("second message flagged, a=2")
	}
	if !l.Check("bob", links("a")) {
		t.Fatal("third occurrence of a not flagged")
	}
	if l.Check("carol", links("a")) {
		t.Error("counts leaked across users")
	}
}

func TestCheckSameLinkTwiceInOneMessage(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := New(Options{Limit: 2, Window: time.Minute, Now: c.Now})
	if !l.Check("dave", links("x", "x")) {
		t.Error("duplicate links in one message should count twice")
	}
}

func TestCheckResetsAfterWindow(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := newLimiter(c)
	u := links("https://weidian.com/item.html?itemID=1")

	l.Check("erin", u)
	l.Check("erin", u)
	c.Advance(16 * time.Second)

	if l.Check("erin", u) {
		t.Error("Check() after idle window should start from zero")
	}
}

func TestCheckActivityExtendsWindow(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := newLimiter(c)
	u := links("k")

	// each call lands inside the window of the previous one
	l.Check("frank", u)
	c.Advance(14 * time.Second)
	l.Check("frank", u)
	c.Advance(14 * time.Second)
	if !l.Check("frank", u) {
		t.Error("continuous activity should keep counting")
	}
}

func TestSweep(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := newLimiter(c)

	l.Check("idle", links("a"))
	c.Advance(10 * time.Second)
	l.Check("active", links("a"))
	c.Advance(6 * time.Second)

	if n := l.Sweep(); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if l.Size() != 1 {
		t.Errorf("Size() = %d, want 1", l.Size())
	}
}

func TestMaxUsersForcesSweep(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := New(Options{Limit: 3, Window: time.Second, MaxUsers: 2, Now: c.Now})

	l.Check("u1", links("a"))
	l.Check("u2", links("a"))
	c.Advance(2 * time.Second)
	l.Check("u3", links("a"))

	if l.Size() != 1 {
		t.Errorf("Size() = %d, want 1 after forced sweep", l.Size())
	}
}

func TestCheckConcurrent(t *testing.T) {
	l := New(Options{Limit: 1_000_000, Window: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Check(fmt.Sprintf("user-%d", i%2), links("same"))
			}
		}(i)
	}
	wg.Wait()

	if l.Size() != 2 {
		t.Errorf("Size() = %d, want 2", l.Size())
	}
}

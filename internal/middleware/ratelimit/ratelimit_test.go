package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestAllowWindow(t *testing.T) {
	clk := &clock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 2, Now: clk.now})
	defer rl.Stop()

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("third request in the window should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatal("other clients are independent")
	}

	clk.advance(time.Minute)
	if !rl.Allow("1.1.1.1") {
		t.Fatal("new window should reset the counter")
	}
	if rl.Hits() != 1 {
		t.Fatalf("hits = %d", rl.Hits())
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	clk := &clock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 5, Now: clk.now})
	defer rl.Stop()

	rl.Allow("a")
	clk.advance(11 * time.Minute)
	rl.Allow("b")
	rl.cleanupStaleEntries()

	if n := rl.ActiveClients(); n != 1 {
		t.Fatalf("active clients = %d", n)
	}
}

func TestMiddlewareOnlyLimitsMutations(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()
	rl.Stop()

	var limited int
	h := rl.Middleware(
		func(*http.Request) string { return "ip" },
		Mutating,
		func(w http.ResponseWriter, r *http.Request) {
			limited++
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for _, method := range []string{http.MethodPost, http.MethodPost, http.MethodGet, http.MethodGet} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/expenses", nil))
		codes = append(codes, rr.Code)
	}
	want := []int{200, 429, 200, 200}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
	if limited != 1 {
		t.Fatalf("onLimit called %d times", limited)
	}
}

package http

import (
	"testing"
	"time"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := newRateLimiter(2)
	r.now = func() time.Time { return now }

	if !r.allow() || !r.allow() {
		t.Fatal("first two events should pass")
	}
	if r.allow() {
		t.Fatal("third event in the window should be refused")
	}

	now = now.Add(59 * time.Second)
	if r.allow() {
		t.Fatal("window should not have reset yet")
	}

	now = now.Add(time.Second)
	if !r.allow() {
		t.Fatal("new window should allow again")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(0)
	for i := 0; i < 1000; i++ {
		if !r.allow() {
			t.Fatalf("disabled limiter refused event %d", i)
		}
	}

	var nilLimiter *rateLimiter
	if !nilLimiter.allow() {
		t.Fatal("nil limiter should allow")
	}
}

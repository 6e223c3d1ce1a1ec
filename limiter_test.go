package folio

import (
	"testing"
	"time"
)

// attempt mirrors how handlers use the limiter: check, then count.
func attempt(l *RateLimiter, ip string) bool {
	if !l.Check(ip) {
		return false
	}
	l.Record(ip)
	return true
}

func TestRateLimiterBlocksAfterMax(t *testing.T) {
	limiter := NewRateLimiter(2, 200*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.10"

	if !attempt(limiter, ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if !attempt(limiter, ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	if attempt(limiter, ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewRateLimiter(1, 150*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.20"

	if !attempt(limiter, ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if attempt(limiter, ip) {
		t.Fatalf("expected second attempt to be blocked")
	}

	time.Sleep(200 * time.Millisecond)
	if !attempt(limiter, ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestRateLimiterIsPerIP(t *testing.T) {
	limiter := NewRateLimiter(1, 200*time.Millisecond)
	defer limiter.Stop()

	if !attempt(limiter, "203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !attempt(limiter, "203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if attempt(limiter, "203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestRateLimiterCheckRecordReset(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.40"

	if !limiter.Check(ip) {
		t.Fatalf("expected check to pass with no attempts")
	}
	limiter.Record(ip)
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected check to fail after two failures")
	}
	limiter.Reset(ip)
	if !limiter.Check(ip) {
		t.Fatalf("expected check to pass after reset")
	}
}

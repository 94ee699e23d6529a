package server

import (
	"testing"
	"time"
)

func TestRateLimiterBuckets(t *testing.T) {
	rl := NewRateLimiter(60, 2, nil)
	defer rl.Close()

	if !rl.Allow("ip:a") || !rl.Allow("ip:a") {
		t.Fatal("Expected burst of 2 to be allowed")
	}
	if rl.Allow("ip:a") {
		t.Error("Expected third request to be rejected")
	}
	if !rl.Allow("ip:b") {
		t.Error("Expected other client to have its own bucket")
	}

	stats := rl.GetStats()
	if stats["active_clients"] != 2 {
		t.Errorf("Expected 2 active clients, got %v", stats["active_clients"])
	}
	if stats["requests_rejected"] != int64(1) {
		t.Errorf("Expected 1 rejected request, got %v", stats["requests_rejected"])
	}
	if got := rl.retryAfter(); got != 1 {
		t.Errorf("Expected Retry-After of 1s at 60/min, got %d", got)
	}
}

func TestRateLimiterEvictIdle(t *testing.T) {
	rl := NewRateLimiter(60, 1, nil)
	defer rl.Close()

	rl.Allow("ip:old")
	rl.mu.Lock()
	rl.clients["ip:old"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()
	rl.Allow("ip:new")

	if n := rl.evictIdle(time.Minute); n != 1 {
		t.Errorf("Expected 1 evicted bucket, got %d", n)
	}
	if stats := rl.GetStats(); stats["active_clients"] != 1 {
		t.Errorf("Expected 1 remaining client, got %v", stats["active_clients"])
	}

	// Close twice must not panic
	rl.Close()
}

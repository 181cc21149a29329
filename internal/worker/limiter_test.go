package worker

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	tests := []struct {
		name      string
		rps       float64
		burst     int
		wantBurst int
	}{
		{"explicit burst", 10, 3, 3},
		{"negative burst", 10, -1, 5},
		{"zero rate", 0, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter(tt.rps, tt.burst)
			if l.burst != tt.wantBurst {
				t.Errorf("burst = %d, want %d", l.burst, tt.wantBurst)
			}
		})
	}
}

func TestLimiter_OneBucketPerHost(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	urls := []string{
		"http://Example.com/a",
		"http://example.com:8080/b",
		"https://www.googleapis.com/customsearch/v1",
	}
	for _, u := range urls {
		if err := limiter.Wait(ctx, u); err != nil {
			t.Fatalf("Wait(%s): %v", u, err)
		}
	}
	if err := limiter.WaitKey(ctx, "GoogleNews"); err != nil {
		t.Fatal(err)
	}

	if got := limiter.Hosts(); got != 3 {
		t.Errorf("Hosts() = %d, want 3", got)
	}
}

func TestLimiter_RejectsURLWithoutHost(t *testing.T) {
	limiter := NewLimiter(100, 1)
	if err := limiter.Wait(context.Background(), "not a url"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_EvictsIdleBuckets(t *testing.T) {
	limiter := NewLimiter(100, 1)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < maxBuckets; i++ {
		_ = limiter.WaitKey(ctx, fmt.Sprintf("host-%d", i))
	}

	now = now.Add(bucketIdle + time.Second)
	_ = limiter.WaitKey(ctx, "fresh")

	if got := limiter.Hosts(); got != 1 {
		t.Errorf("Hosts() = %d after eviction, want 1", got)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	if err := limiter.WaitWithDelay(context.Background(), "http://example.com", 50*time.Millisecond); err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", d)
	}
}

func TestLimiter_WaitWithDelay_Cancelled(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.WaitWithDelay(ctx, "http://example.com", time.Second); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "http://example.com"); err != nil {
		t.Errorf("nil limiter returned %v", err)
	}
	if limiter.Hosts() != 0 {
		t.Error("nil limiter reports hosts")
	}
}

func TestLimiter_ZeroRateIsUnlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 50; i++ {
		if err := limiter.Wait(ctx, "http://example.com"); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}
}

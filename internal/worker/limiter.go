package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxBuckets bounds the number of tracked hosts. When it is reached,
	// buckets idle for longer than bucketIdle are dropped.
	maxBuckets = 1024
	bucketIdle = 10 * time.Minute
)

// Limiter throttles outbound requests per host. Page fetches are keyed by
// URL host and search providers by provider name. A nil *Limiter never
// blocks.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLimiter creates a limiter allowing requestsPerSecond per host with the
// given burst. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

// Wait blocks until the host of rawURL may be contacted.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.WaitKey(ctx, host)
}

// WaitKey blocks until a request under key is allowed.
func (l *Limiter) WaitKey(ctx context.Context, key string) error {
	if l == nil {
		return ctx.Err()
	}
	return l.bucketFor(strings.ToLower(key)).Wait(ctx)
}

// WaitWithDelay waits like Wait and then sleeps for crawlDelay, as requested
// by a site's robots.txt.
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, crawlDelay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}
	if crawlDelay <= 0 {
		return nil
	}

	timer := time.NewTimer(crawlDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Hosts returns the number of tracked hosts.
func (l *Limiter) Hosts() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) bucketFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if b, ok := l.buckets[key]; ok {
		b.lastUsed = now
		return b.limiter
	}

	if len(l.buckets) >= maxBuckets {
		l.evictIdle(now)
	}
	b := &bucket{limiter: rate.NewLimiter(l.limit, l.burst), lastUsed: now}
	l.buckets[key] = b
	return b.limiter
}

// evictIdle drops idle buckets. Callers hold l.mu.
func (l *Limiter) evictIdle(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastUsed) > bucketIdle {
			delete(l.buckets, key)
		}
	}
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return strings.ToLower(u.Hostname()), nil
}

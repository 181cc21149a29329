// Package search fetches candidate evidence for a query from an external
// provider, falling back to deterministic synthetic sources.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/score"
	"github.com/ppiankov/veritas/internal/worker"
)

// Limits accepted by Fetch.
const (
	MinLimit = 1
	MaxLimit = 50
)

// Origin tells where a result set came from.
type Origin string

const (
	OriginProvider  Origin = "provider"
	OriginCache     Origin = "cache"
	OriginSynthetic Origin = "synthetic"
)

var (
	factCheckSites = []string{"snopes.com", "factcheck.org", "politifact.com", "fullfact.org", "leadstories.com"}
	academicSites  = []string{"scholar.google.com", "pubmed.ncbi.nlm.nih.gov", "jstor.org", "nature.com", "science.org", "arxiv.org"}
)

// Result is the outcome of a gateway fetch. Degraded holds the reason the
// synthetic fallback was used, if any.
type Result struct {
	Sources  []model.EvidenceSource
	Origin   Origin
	Provider string
	Degraded string
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Gateway wraps one search provider. It is safe for concurrent use.
type Gateway struct {
	provider Provider
	scorer   *score.Scorer
	cache    cache.Cache
	cacheTTL time.Duration
	limiter  *worker.Limiter
	delay    time.Duration
	sleep    SleepFunc
	logger   *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCache caches provider results for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(g *Gateway) {
		g.cache = c
		g.cacheTTL = ttl
	}
}

// WithLimiter throttles provider requests.
func WithLimiter(l *worker.Limiter) Option {
	return func(g *Gateway) { g.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithSleep replaces the function used for the fallback delay.
func WithSleep(s SleepFunc) Option {
	return func(g *Gateway) { g.sleep = s }
}

// NewGateway creates a gateway. A nil provider always uses the synthetic
// fallback. simulatedDelay is applied before synthetic results are returned.
func NewGateway(provider Provider, scorer *score.Scorer, simulatedDelay time.Duration, opts ...Option) *Gateway {
	g := &Gateway{
		provider: provider,
		scorer:   scorer,
		delay:    simulatedDelay,
		sleep:    sleepContext,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProviderName returns the configured provider name, or "synthetic".
func (g *Gateway) ProviderName() string {
	if g.provider == nil {
		return string(OriginSynthetic)
	}
	return g.provider.Name()
}

// Fetch returns up to limit sources for query, limit clamped to [1,50].
// It never fails: provider errors and missing credentials produce
// synthetic sources and a degraded Result.
func (g *Gateway) Fetch(ctx context.Context, query string, limit int) Result {
	limit = clampLimit(limit)

	if g.provider == nil {
		return g.fallback(ctx, query, limit, "no search provider configured")
	}

	name := g.provider.Name()
	key := cache.Key(name, query, strconv.Itoa(limit))
	if sources, ok := g.cached(key); ok {
		return Result{Sources: sources, Origin: OriginCache, Provider: name}
	}

	if err := g.limiter.WaitKey(ctx, name); err != nil {
		return g.fallback(ctx, query, limit, fmt.Sprintf("rate limit: %v", err))
	}

	hits, err := g.provider.Search(ctx, query, limit)
	if err != nil {
		g.logger.Warn("search provider failed, using synthetic sources",
			"provider", name, "query", query, "error", err)
		return g.fallback(ctx, query, limit, err.Error())
	}

	sources := make([]model.EvidenceSource, 0, len(hits))
	for _, hit := range hits {
		src := g.scorer.Source(hit.URL, hit.Title, hit.Snippet, query)
		if hit.Publisher != "" {
			src.CredibilityScore = g.scorer.Credibility(hit.Publisher)
		}
		sources = append(sources, src)
		if len(sources) == limit {
			break
		}
	}

	g.store(key, sources)
	return Result{Sources: sources, Origin: OriginProvider, Provider: name}
}

// SearchCredible fetches limit*2 candidates and keeps those whose
// credibility is at least minCredibility, truncated to limit. It never pads.
func (g *Gateway) SearchCredible(ctx context.Context, query string, limit int, minCredibility float64) Result {
	limit = clampLimit(limit)
	res := g.Fetch(ctx, query, limit*2)

	kept := make([]model.EvidenceSource, 0, limit)
	for _, src := range res.Sources {
		if src.CredibilityScore >= minCredibility {
			kept = append(kept, src)
			if len(kept) == limit {
				break
			}
		}
	}
	res.Sources = kept
	return res
}

// SearchFactCheck restricts the query to fact-checking sites.
func (g *Gateway) SearchFactCheck(ctx context.Context, query string, limit int) Result {
	return g.Fetch(ctx, RestrictToSites(query, factCheckSites), limit)
}

// SearchAcademic restricts the query to academic sources.
func (g *Gateway) SearchAcademic(ctx context.Context, query string, limit int) Result {
	return g.Fetch(ctx, RestrictToSites(query, academicSites), limit)
}

// RestrictToSites appends site: operators for sites to query.
func RestrictToSites(query string, sites []string) string {
	ops := make([]string, len(sites))
	for i, site := range sites {
		ops[i] = "site:" + site
	}
	return fmt.Sprintf("%s (%s)", query, strings.Join(ops, " OR "))
}

func (g *Gateway) fallback(ctx context.Context, query string, limit int, reason string) Result {
	if err := g.sleep(ctx, g.delay); err != nil {
		g.logger.Debug("synthetic delay interrupted", "error", err)
	}
	return Result{
		Sources:  syntheticSources(g.scorer, query, limit),
		Origin:   OriginSynthetic,
		Provider: g.ProviderName(),
		Degraded: reason,
	}
}

func (g *Gateway) cached(key string) ([]model.EvidenceSource, bool) {
	if g.cache == nil {
		return nil, false
	}
	data, ok := g.cache.Get(key)
	if !ok {
		return nil, false
	}
	var sources []model.EvidenceSource
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, false
	}
	return sources, true
}

func (g *Gateway) store(key string, sources []model.EvidenceSource) {
	if g.cache == nil {
		return
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return
	}
	if err := g.cache.Set(key, data, g.cacheTTL); err != nil {
		g.logger.Debug("search cache write failed", "error", err)
	}
}

func clampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

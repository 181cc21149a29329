// Package pipeline runs an analysis end to end: normalize the content, fetch
// evidence, judge it, and record the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/history"
	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/normalize"
	"github.com/ppiankov/veritas/internal/score"
	"github.com/ppiankov/veritas/internal/search"
	"github.com/ppiankov/veritas/internal/telemetry"
	"github.com/ppiankov/veritas/internal/util"
	"github.com/ppiankov/veritas/internal/verdict"
	"github.com/ppiankov/veritas/internal/worker"
)

const (
	// MaxBatchSize is the largest batch AnalyzeBatch accepts.
	MaxBatchSize = 10

	// EvidenceLimit is the number of sources requested per analysis.
	EvidenceLimit = 10
)

// Degradation stages.
const (
	StageNormalize = "normalize"
	StageSearch    = "search"
	StageVerdict   = "verdict"
	StageHistory   = "history"
)

// ErrInternal wraps unexpected failures such as recovered panics.
var ErrInternal = errors.New("internal error")

// Pipeline orchestrates the analysis of submitted content. Components are
// built once and shared; Pipeline is safe for concurrent use.
type Pipeline struct {
	normalizer *normalize.Normalizer
	gateway    *search.Gateway
	engine     *verdict.Engine
	history    history.Store
	telemetry  *telemetry.Provider
	logger     *slog.Logger
	now        func() time.Time
	wg         sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHistory records every completed analysis in store.
func WithHistory(store history.Store) Option {
	return func(p *Pipeline) { p.history = store }
}

// WithTelemetry records spans and metrics.
func WithTelemetry(t *telemetry.Provider) Option {
	return func(p *Pipeline) { p.telemetry = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline from already-built components.
func New(normalizer *normalize.Normalizer, gateway *search.Gateway, engine *verdict.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer: normalizer,
		gateway:    gateway,
		engine:     engine,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewPipeline builds every component from cfg. A model provider that fails
// to initialize is logged and the rule-based strategy is used instead.
func NewPipeline(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	p := New(nil, nil, nil, opts...)

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	scorer := score.NewScorer(cfg.Scoring)

	p.normalizer = normalize.NewNormalizer(normalize.NewFetcher(cfg.HTTP, limiter), p.logger)

	provider, err := search.NewProvider(cfg.Search, util.NewHTTPClient(cfg.Search.Timeout, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}
	if provider == nil {
		p.logger.Info("no search provider configured, using synthetic sources")
	}
	p.gateway = search.NewGateway(provider, scorer, cfg.Search.SimulatedDelay,
		search.WithCache(cache.New(cfg.Cache), cfg.Cache.TTL),
		search.WithLimiter(limiter),
		search.WithLogger(p.logger),
	)

	var judge llm.Provider
	if cfg.LLM.Provider != "" {
		m, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			p.logger.Warn("failed to initialize LLM provider, using rule-based verdicts",
				"provider", cfg.LLM.Provider, "error", err)
		} else {
			judge = m
		}
	}
	p.engine = verdict.NewEngine(judge, cfg.Verdict, verdict.WithLogger(p.logger))

	return p, nil
}

// Gateway returns the evidence gateway used by the pipeline.
func (p *Pipeline) Gateway() *search.Gateway {
	return p.gateway
}

// Engine returns the verdict engine used by the pipeline.
func (p *Pipeline) Engine() *verdict.Engine {
	return p.engine
}

// Analyze runs one request. Client errors wrap model.ErrInvalidRequest or
// model.ErrUnsupportedMediaType; recovered panics wrap ErrInternal. Every
// dependency failure is absorbed and reported in the Diagnostics.
func (p *Pipeline) Analyze(ctx context.Context, req model.AnalyzeRequest) (result *model.AnalysisResult, diag *model.Diagnostics, err error) {
	start := p.now()

	ctx, span := p.telemetry.Tracer().Start(ctx, "pipeline.Analyze",
		trace.WithAttributes(attribute.String("media_type", req.MediaType)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("analysis panicked", "panic", r, "media_type", req.MediaType)
			result, diag = nil, nil
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if strings.TrimSpace(req.Content) == "" {
		return nil, nil, fmt.Errorf("%w: content is required", model.ErrInvalidRequest)
	}
	mediaType, err := model.ParseMediaType(req.MediaType)
	if err != nil {
		return nil, nil, err
	}

	norm, err := p.normalizer.Normalize(ctx, req.Content, mediaType, req.Metadata)
	if err != nil {
		return nil, nil, err
	}

	diag = &model.Diagnostics{
		SearchQuery: norm.Content.SearchQuery,
		Metadata:    norm.Content.Metadata,
	}
	if norm.Degraded != "" {
		p.degrade(ctx, diag, StageNormalize, norm.Degraded)
	}

	evidence := p.gateway.Fetch(ctx, norm.Content.SearchQuery, EvidenceLimit)
	diag.SearchOrigin = string(evidence.Origin)
	if evidence.Degraded != "" {
		p.degrade(ctx, diag, StageSearch, evidence.Degraded)
	}

	outcome := p.engine.Analyze(ctx, norm.Content.TextContent, evidence.Sources, mediaType)
	diag.Strategy = string(outcome.Strategy)
	for _, s := range outcome.Trace {
		diag.Trace = append(diag.Trace, string(s))
	}
	diag.Warnings = append(diag.Warnings, outcome.Warnings...)
	if outcome.Model != "" && outcome.Strategy == verdict.StrategyRuleBased {
		p.degrade(ctx, diag, StageVerdict, strings.Join(outcome.Warnings, "; "))
	}

	j := outcome.Judgment
	result = &model.AnalysisResult{
		ID:              uuid.NewString(),
		Verdict:         j.Verdict,
		Confidence:      j.ConfidenceLevel,
		ConfidenceScore: j.ConfidenceScore,
		Summary:         j.Summary,
		Evidence:        evidence.Sources,
		Reasoning:       j.Reasoning,
		Timestamp:       p.now().UTC(),
	}
	result.ProcessingTime = p.now().Sub(start).Seconds()

	span.SetAttributes(
		attribute.String("analysis.id", result.ID),
		attribute.String("verdict", string(result.Verdict)),
		attribute.String("strategy", diag.Strategy),
		attribute.Int("evidence.count", len(result.Evidence)),
	)
	p.telemetry.RecordAnalysis(ctx, string(mediaType), string(result.Verdict), diag.Strategy,
		diag.Degraded(), result.ProcessingTime)

	p.logger.Info("analysis completed",
		"id", result.ID,
		"media_type", mediaType,
		"verdict", result.Verdict,
		"confidence_score", result.ConfidenceScore,
		"strategy", diag.Strategy,
		"search_origin", diag.SearchOrigin,
		"degraded", diag.Degraded(),
		"duration_ms", p.now().Sub(start).Milliseconds(),
	)

	p.record(result, req)
	return result, diag, nil
}

// AnalyzeBatch analyzes up to MaxBatchSize requests in order. A failed item
// yields a placeholder result instead of failing the batch; only an
// oversized batch or cancellation returns an error.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, reqs []model.AnalyzeRequest) ([]*model.AnalysisResult, error) {
	if len(reqs) > MaxBatchSize {
		return nil, fmt.Errorf("%w: maximum %d items per batch, got %d", model.ErrBatchTooLarge, MaxBatchSize, len(reqs))
	}

	results := make([]*model.AnalysisResult, 0, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, _, err := p.Analyze(ctx, req)
		if err != nil {
			p.logger.Warn("batch item failed", "index", i, "error", err)
			result = p.placeholder(err)
		}
		results = append(results, result)
	}
	return results, nil
}

// Wait blocks until pending history writes finish.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) placeholder(err error) *model.AnalysisResult {
	return &model.AnalysisResult{
		ID:              uuid.NewString(),
		Verdict:         model.VerdictUnverifiable,
		Confidence:      model.ConfidenceLow,
		ConfidenceScore: 0.0,
		Summary:         "Analysis failed: " + err.Error(),
		Evidence:        []model.EvidenceSource{},
		Reasoning:       "Unable to process due to error",
		Timestamp:       p.now().UTC(),
	}
}

func (p *Pipeline) degrade(ctx context.Context, diag *model.Diagnostics, stage, reason string) {
	diag.Degradations = append(diag.Degradations, model.Degradation{Stage: stage, Reason: reason})
	p.telemetry.RecordFallback(ctx, stage)
}

// record hands the result to the history store without blocking the caller.
// The write outlives the request context.
func (p *Pipeline) record(result *model.AnalysisResult, req model.AnalyzeRequest) {
	if p.history == nil {
		return
	}
	stored := *result

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("history store panicked", "id", stored.ID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.history.Store(ctx, &stored, req); err != nil {
			p.logger.Warn("failed to store analysis history", "id", stored.ID, "error", err)
			p.telemetry.RecordFallback(ctx, StageHistory)
		}
	}()
}

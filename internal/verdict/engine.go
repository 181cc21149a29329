// Package verdict assigns a truthfulness verdict to content given its
// evidence. An external model is consulted when configured; every failure
// on that path falls back to the rule-based strategy.
package verdict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/model"
)

// Strategy names the path that produced a judgment.
type Strategy string

const (
	StrategyModel     Strategy = "model"
	StrategyRuleBased Strategy = "rule_based"
)

// State is a step of the verdict state machine.
type State string

const (
	StateNotStarted    State = "not_started"
	StateAwaitingModel State = "awaiting_model"
	StateParsed        State = "parsed"
	StateTimedOut      State = "timed_out"
	StateErrored       State = "errored"
	StateRuleBased     State = "rule_based"
	StateCompleted     State = "completed"
)

const defaultModelTimeout = 25 * time.Second

// Outcome is the result of Analyze. Trace always ends in StateCompleted.
type Outcome struct {
	Judgment  model.VerdictJudgment
	Strategy  Strategy
	Model     string
	ParseMode ParseMode
	Trace     []State
	Warnings  []string
}

// Engine produces verdicts. It holds no per-request state.
type Engine struct {
	provider  llm.Provider
	cfg       model.VerdictConfig
	perturber Perturber
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPerturber replaces the content-hash perturbation.
func WithPerturber(p Perturber) Option {
	return func(e *Engine) { e.perturber = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine. A nil provider selects the rule-based
// strategy for every request.
func NewEngine(provider llm.Provider, cfg model.VerdictConfig, opts ...Option) *Engine {
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = defaultModelTimeout
	}
	e := &Engine{
		provider:  provider,
		cfg:       cfg,
		perturber: HashPerturber{Amplitude: cfg.Perturbation},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy returns the strategy tried first.
func (e *Engine) Strategy() Strategy {
	if e.provider == nil {
		return StrategyRuleBased
	}
	return StrategyModel
}

// CheckModel pings the configured model. It returns nil when the engine is
// rule-based.
func (e *Engine) CheckModel(ctx context.Context) error {
	if e.provider == nil {
		return nil
	}
	if err := e.provider.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", e.provider.Name(), err)
	}
	return nil
}

// Analyze judges content against sources. It never fails.
func (e *Engine) Analyze(ctx context.Context, content string, sources []model.EvidenceSource, mediaType model.MediaType) Outcome {
	out := Outcome{Trace: []State{StateNotStarted}}

	if e.provider != nil {
		out.Trace = append(out.Trace, StateAwaitingModel)
		out.Model = e.provider.Name()

		ans, err := e.consultModel(ctx, content, sources, mediaType)
		out.Trace = append(out.Trace, ans.state)
		if err == nil {
			out.Judgment = ans.judgment
			out.Strategy = StrategyModel
			out.ParseMode = ans.mode
			if ans.mode != ParsedJSON {
				out.Warnings = append(out.Warnings, fmt.Sprintf("model response was not valid JSON, parsed as %s", ans.mode))
			}
			if unknown := llm.UnknownURLs(ans.cited, sourceURLs(sources)); len(unknown) > 0 {
				out.Warnings = append(out.Warnings, "model cited URLs outside the evidence set: "+strings.Join(unknown, ", "))
			}
			out.Trace = append(out.Trace, StateCompleted)
			return out
		}

		e.logger.Warn("verdict model failed, using rule-based scoring",
			"provider", out.Model, "state", ans.state, "error", err)
		out.Warnings = append(out.Warnings, fmt.Sprintf("model %s: %v", ans.state, err))
	}

	out.Trace = append(out.Trace, StateRuleBased)
	out.Judgment = e.RuleBased(content, sources)
	out.Strategy = StrategyRuleBased
	out.Trace = append(out.Trace, StateCompleted)
	return out
}

type completion struct {
	resp *llm.CompletionResponse
	err  error
}

type modelAnswer struct {
	judgment model.VerdictJudgment
	mode     ParseMode
	state    State
	cited    []string
}

// consultModel runs the provider call in its own goroutine so the timeout
// holds even if the provider ignores ctx.
func (e *Engine) consultModel(ctx context.Context, content string, sources []model.EvidenceSource, mediaType model.MediaType) (modelAnswer, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ModelTimeout)
	defer cancel()

	req := llm.CompletionRequest{
		System: systemPrompt,
		Prompt: BuildPrompt(content, sources, mediaType),
		JSON:   true,
	}

	done := make(chan completion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		resp, err := e.provider.Complete(ctx, req)
		done <- completion{resp: resp, err: err}
	}()

	var c completion
	select {
	case <-ctx.Done():
		return modelAnswer{state: StateTimedOut}, ctx.Err()
	case c = <-done:
	}

	if c.err != nil {
		if errors.Is(c.err, context.DeadlineExceeded) {
			return modelAnswer{state: StateTimedOut}, c.err
		}
		return modelAnswer{state: StateErrored}, c.err
	}
	if c.resp == nil || strings.TrimSpace(c.resp.Text) == "" {
		return modelAnswer{state: StateErrored}, errors.New("empty model response")
	}

	j, mode := ParseResponse(c.resp.Text)
	return modelAnswer{judgment: j, mode: mode, state: StateParsed, cited: c.resp.CitedURLs}, nil
}

func sourceURLs(sources []model.EvidenceSource) []string {
	urls := make([]string, len(sources))
	for i, src := range sources {
		urls[i] = src.URL
	}
	return urls
}

package verdict

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/model"
)

type fakeProvider struct {
	text  string
	err   error
	block chan struct{}
	panic bool
}

func (p *fakeProvider) Name() string                   { return "fake" }
func (p *fakeProvider) Ping(ctx context.Context) error { return p.err }

func (p *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if p.panic {
		panic("boom")
	}
	if p.block != nil {
		<-p.block // ignores ctx on purpose
	}
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.text, CitedURLs: llm.ExtractURLs(p.text)}, nil
}

func defaultVerdictConfig() model.VerdictConfig {
	return model.DefaultConfig().Verdict
}

func sourcesWith(cred float64, rels ...float64) []model.EvidenceSource {
	out := make([]model.EvidenceSource, len(rels))
	for i, r := range rels {
		out[i] = model.EvidenceSource{
			URL:              "https://example-news.com/" + string(rune('a'+i)),
			CredibilityScore: cred,
			RelevanceScore:   r,
		}
	}
	return out
}

func TestRuleBased_NoSources(t *testing.T) {
	e := NewEngine(nil, defaultVerdictConfig())

	for _, content := range []string{"", "The earth is flat", "research shows hoax"} {
		out := e.Analyze(context.Background(), content, nil, model.MediaText)
		j := out.Judgment
		if j.Verdict != model.VerdictUnverifiable || j.ConfidenceLevel != model.ConfidenceLow || j.ConfidenceScore != 0.2 {
			t.Errorf("content %q: got %+v", content, j)
		}
		if out.Strategy != StrategyRuleBased {
			t.Errorf("strategy = %s", out.Strategy)
		}
	}
}

func TestClassify_Thresholds(t *testing.T) {
	e := NewEngine(nil, defaultVerdictConfig())

	tests := []struct {
		score   float64
		verdict model.Verdict
		level   model.ConfidenceLevel
	}{
		{0.95, model.VerdictTrue, model.ConfidenceHigh},
		{0.8, model.VerdictTrue, model.ConfidenceHigh},
		{0.79, model.VerdictPartiallyTrue, model.ConfidenceMedium},
		{0.6, model.VerdictPartiallyTrue, model.ConfidenceMedium},
		{0.59, model.VerdictMisleading, model.ConfidenceMedium},
		{0.4, model.VerdictMisleading, model.ConfidenceMedium},
		{0.39, model.VerdictFalse, model.ConfidenceMedium},
		{0.2, model.VerdictFalse, model.ConfidenceMedium},
		{0.19, model.VerdictUnverifiable, model.ConfidenceLow},
		{0.1, model.VerdictUnverifiable, model.ConfidenceLow},
	}

	for _, tt := range tests {
		v, l := e.Classify(tt.score)
		if v != tt.verdict || l != tt.level {
			t.Errorf("Classify(%v) = %s/%s, want %s/%s", tt.score, v, l, tt.verdict, tt.level)
		}
	}
}

func TestRuleBased_Phrases(t *testing.T) {
	e := NewEngine(nil, defaultVerdictConfig(), WithPerturber(NoPerturbation))
	sources := sourcesWith(0.5, 0.8, 0.8)

	tests := []struct {
		name    string
		content string
		score   float64
		verdict model.Verdict
	}{
		{"neutral", "The earth is round.", 0.65, model.VerdictPartiallyTrue},
		{"suspicious", "This is a HOAX.", 0.455, model.VerdictMisleading},
		{"credible", "A study found it.", 0.78, model.VerdictPartiallyTrue},
		{"both", "The secret study.", 0.546, model.VerdictMisleading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := e.RuleBased(tt.content, sources)
			if math.Abs(j.ConfidenceScore-tt.score) > 1e-9 {
				t.Errorf("score = %v, want %v", j.ConfidenceScore, tt.score)
			}
			if j.Verdict != tt.verdict {
				t.Errorf("verdict = %s, want %s", j.Verdict, tt.verdict)
			}
		})
	}
}

func TestRuleBased_ClampsScore(t *testing.T) {
	e := NewEngine(nil, defaultVerdictConfig(), WithPerturber(NoPerturbation))

	high := e.RuleBased("according to experts", sourcesWith(1, 1))
	if high.ConfidenceScore != 0.95 || high.Verdict != model.VerdictTrue {
		t.Errorf("expected clamp to 0.95/true, got %+v", high)
	}

	low := e.RuleBased("hoax", sourcesWith(0, 0))
	if low.ConfidenceScore != 0.1 || low.Verdict != model.VerdictUnverifiable {
		t.Errorf("expected clamp to 0.1/unverifiable, got %+v", low)
	}
}

func TestRuleBased_Deterministic(t *testing.T) {
	e := NewEngine(nil, defaultVerdictConfig())
	sources := sourcesWith(0.5, 1, 0.9, 0.8, 0.7, 0.6)

	first := e.RuleBased("Vaccines cause autism.", sources)
	for i := 0; i < 5; i++ {
		if got := e.RuleBased("Vaccines cause autism.", sources); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestRuleBased_FlatEarth(t *testing.T) {
	content := "The earth is flat and has been proven by scientists."
	e := NewEngine(nil, defaultVerdictConfig())
	sources := sourcesWith(0.5, 1, 0.9, 0.8, 0.7, 0.6)

	j := e.RuleBased(content, sources)

	want := 0.65 + HashPerturber{Amplitude: 0.1}.Perturb(content)
	if math.Abs(j.ConfidenceScore-want) > 1e-9 {
		t.Errorf("score = %v, want %v", j.ConfidenceScore, want)
	}
	if j.ConfidenceScore < 0.55 || j.ConfidenceScore > 0.75 {
		t.Errorf("score %v outside perturbation window", j.ConfidenceScore)
	}
	wantVerdict, wantLevel := e.Classify(want)
	if j.Verdict != wantVerdict || j.ConfidenceLevel != wantLevel {
		t.Errorf("got %s/%s, want %s/%s", j.Verdict, j.ConfidenceLevel, wantVerdict, wantLevel)
	}
	if !strings.Contains(j.Reasoning, "Average source credibility: 0.50, relevance: 0.80") {
		t.Errorf("unexpected reasoning %q", j.Reasoning)
	}
}

func TestHashPerturber_Range(t *testing.T) {
	p := HashPerturber{Amplitude: 0.1}
	for _, s := range []string{"", "a", "b", "The earth is flat", strings.Repeat("x", 5000)} {
		v := p.Perturb(s)
		if v < -0.1 || v > 0.1 {
			t.Errorf("Perturb(%q) = %v out of range", s, v)
		}
		if v != p.Perturb(s) {
			t.Errorf("Perturb(%q) not deterministic", s)
		}
	}
	if (HashPerturber{}).Perturb("x") != 0 {
		t.Error("zero amplitude should not perturb")
	}
}

func TestAnalyze_ModelJSON(t *testing.T) {
	p := &fakeProvider{text: `Sure. {"verdict": "false", "confidence_level": "low", "confidence_score": 0.9, "summary": "Debunked", "reasoning": "Sources contradict it"}`}
	e := NewEngine(p, defaultVerdictConfig())

	out := e.Analyze(context.Background(), "claim", sourcesWith(0.9, 0.9), model.MediaText)

	if out.Strategy != StrategyModel || out.Model != "fake" || out.ParseMode != ParsedJSON {
		t.Errorf("unexpected outcome %+v", out)
	}
	want := []State{StateNotStarted, StateAwaitingModel, StateParsed, StateCompleted}
	if !reflect.DeepEqual(out.Trace, want) {
		t.Errorf("trace = %v, want %v", out.Trace, want)
	}
	j := out.Judgment
	if j.Verdict != model.VerdictFalse || j.ConfidenceScore != 0.9 || j.Summary != "Debunked" {
		t.Errorf("unexpected judgment %+v", j)
	}
	if j.ConfidenceLevel != model.ConfidenceHigh {
		t.Errorf("level not reconciled with score: %s", j.ConfidenceLevel)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", out.Warnings)
	}
}

func TestAnalyze_ModelCitesUnknownURL(t *testing.T) {
	p := &fakeProvider{text: `{"verdict": "true", "confidence_score": 0.8, "reasoning": "see https://elsewhere.example/x"}`}
	e := NewEngine(p, defaultVerdictConfig())

	out := e.Analyze(context.Background(), "claim", sourcesWith(0.9, 0.9), model.MediaText)
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "https://elsewhere.example/x") {
		t.Errorf("expected citation warning, got %v", out.Warnings)
	}
}

func TestAnalyze_ModelTimeoutFallsBack(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	cfg := defaultVerdictConfig()
	cfg.ModelTimeout = 20 * time.Millisecond
	e := NewEngine(&fakeProvider{block: block, text: "{}"}, cfg, WithPerturber(NoPerturbation))

	start := time.Now()
	out := e.Analyze(context.Background(), "claim", sourcesWith(0.5, 0.8), model.MediaText)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}

	want := []State{StateNotStarted, StateAwaitingModel, StateTimedOut, StateRuleBased, StateCompleted}
	if !reflect.DeepEqual(out.Trace, want) {
		t.Errorf("trace = %v, want %v", out.Trace, want)
	}
	if out.Strategy != StrategyRuleBased || len(out.Warnings) == 0 {
		t.Errorf("unexpected outcome %+v", out)
	}
	if math.Abs(out.Judgment.ConfidenceScore-0.65) > 1e-9 {
		t.Errorf("rule-based score = %v", out.Judgment.ConfidenceScore)
	}
}

func TestAnalyze_ModelErrorFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"error", &fakeProvider{err: errors.New("quota")}},
		{"panic", &fakeProvider{panic: true}},
		{"empty", &fakeProvider{text: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.provider, defaultVerdictConfig())
			out := e.Analyze(context.Background(), "claim", nil, model.MediaText)

			want := []State{StateNotStarted, StateAwaitingModel, StateErrored, StateRuleBased, StateCompleted}
			if !reflect.DeepEqual(out.Trace, want) {
				t.Errorf("trace = %v, want %v", out.Trace, want)
			}
			if out.Judgment.Verdict != model.VerdictUnverifiable || out.Judgment.ConfidenceScore != 0.2 {
				t.Errorf("unexpected judgment %+v", out.Judgment)
			}
		})
	}
}

func TestAnalyze_ModelKeywordFallback(t *testing.T) {
	e := NewEngine(&fakeProvider{text: "The claim is misleading and I am very confident."}, defaultVerdictConfig())
	out := e.Analyze(context.Background(), "claim", nil, model.MediaText)

	if out.Strategy != StrategyModel || out.ParseMode != ParsedKeywords {
		t.Errorf("unexpected outcome %+v", out)
	}
	if out.Judgment.Verdict != model.VerdictMisleading || out.Judgment.ConfidenceLevel != model.ConfidenceHigh {
		t.Errorf("unexpected judgment %+v", out.Judgment)
	}
	if len(out.Warnings) != 1 {
		t.Errorf("expected parse warning, got %v", out.Warnings)
	}
}

func TestEngine_Strategy(t *testing.T) {
	if s := NewEngine(nil, defaultVerdictConfig()).Strategy(); s != StrategyRuleBased {
		t.Errorf("nil provider strategy = %s", s)
	}
	if s := NewEngine(&fakeProvider{}, defaultVerdictConfig()).Strategy(); s != StrategyModel {
		t.Errorf("provider strategy = %s", s)
	}
}

func TestCheckModel(t *testing.T) {
	if err := NewEngine(nil, defaultVerdictConfig()).CheckModel(context.Background()); err != nil {
		t.Errorf("rule-based engine: CheckModel = %v", err)
	}

	down := errors.New("connection refused")
	err := NewEngine(&fakeProvider{err: down}, defaultVerdictConfig()).CheckModel(context.Background())
	if !errors.Is(err, down) || !strings.HasPrefix(err.Error(), "fake: ") {
		t.Errorf("CheckModel = %v, want wrapped provider error", err)
	}
}

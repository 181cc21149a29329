package verdict

import (
	"fmt"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// RuleBased scores content from the averaged source scores, the phrase
// lists and the perturbation, then maps the score through the threshold
// table.
func (e *Engine) RuleBased(content string, sources []model.EvidenceSource) model.VerdictJudgment {
	if len(sources) == 0 {
		return model.VerdictJudgment{
			Verdict:         model.VerdictUnverifiable,
			ConfidenceLevel: model.ConfidenceLow,
			ConfidenceScore: 0.2,
			Summary:         "No sources found to verify the claims.",
			Reasoning:       "Unable to verify claims due to lack of credible sources.",
		}
	}

	var sumCred, sumRel float64
	for _, src := range sources {
		sumCred += src.CredibilityScore
		sumRel += src.RelevanceScore
	}
	n := float64(len(sources))
	avgCred, avgRel := sumCred/n, sumRel/n

	score := (avgCred + avgRel) / 2

	lower := strings.ToLower(content)
	if containsAny(lower, e.cfg.SuspiciousPhrases) {
		score *= e.cfg.SuspiciousPenalty
	}
	if containsAny(lower, e.cfg.CredibleIndicators) {
		score *= e.cfg.CredibleBoost
	}

	score = clamp(score+e.perturber.Perturb(content), e.cfg.MinScore, e.cfg.MaxScore)
	verdict, level := e.Classify(score)

	return model.VerdictJudgment{
		Verdict:         verdict,
		ConfidenceLevel: level,
		ConfidenceScore: score,
		Summary: fmt.Sprintf("Content assessed as %s based on %d sources with %s confidence",
			verdict, len(sources), level),
		Reasoning: fmt.Sprintf("Analyzed content against %d sources. Average source credibility: %.2f, relevance: %.2f. Final confidence score: %.2f",
			len(sources), avgCred, avgRel, score),
	}
}

// Classify maps a rule-based score to a verdict and confidence level.
func (e *Engine) Classify(score float64) (model.Verdict, model.ConfidenceLevel) {
	switch {
	case score >= e.cfg.TrueThreshold:
		return model.VerdictTrue, model.ConfidenceHigh
	case score >= e.cfg.PartialThreshold:
		return model.VerdictPartiallyTrue, model.ConfidenceMedium
	case score >= e.cfg.MisleadingThreshold:
		return model.VerdictMisleading, model.ConfidenceMedium
	case score >= e.cfg.FalseThreshold:
		return model.VerdictFalse, model.ConfidenceMedium
	default:
		return model.VerdictUnverifiable, model.ConfidenceLow
	}
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

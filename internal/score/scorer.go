// Package score computes source credibility and query relevance.
// All scoring is pure and deterministic.
package score

import "github.com/ppiankov/veritas/internal/model"

// Scorer holds the credibility table. It is read-only after construction
// and safe for concurrent use.
type Scorer struct {
	domains map[string]float64
}

// NewScorer creates a scorer using the built-in domain table extended
// (or overridden) by cfg.Domains.
func NewScorer(cfg model.ScoringConfig) *Scorer {
	domains := make(map[string]float64, len(knownDomains)+len(cfg.Domains))
	for domain, score := range knownDomains {
		domains[domain] = score
	}
	for domain, score := range cfg.Domains {
		domains[Domain(domain)] = clamp(score, 0, 1)
	}
	return &Scorer{domains: domains}
}

// Source builds an EvidenceSource scored against query.
func (s *Scorer) Source(rawURL, title, snippet, query string) model.EvidenceSource {
	return model.EvidenceSource{
		URL:              rawURL,
		Title:            title,
		Snippet:          snippet,
		RelevanceScore:   s.Relevance(title, snippet, query),
		CredibilityScore: s.Credibility(rawURL),
	}
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

package model

// Verdict is the categorical truthfulness classification.
type Verdict string

const (
	VerdictTrue          Verdict = "true"
	VerdictFalse         Verdict = "false"
	VerdictPartiallyTrue Verdict = "partially_true"
	VerdictMisleading    Verdict = "misleading"
	VerdictUnverifiable  Verdict = "unverifiable"
)

// Verdicts lists every verdict, most to least truthful.
var Verdicts = []Verdict{VerdictTrue, VerdictPartiallyTrue, VerdictMisleading, VerdictFalse, VerdictUnverifiable}

// Valid reports whether v is one of the enumerated verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictTrue, VerdictFalse, VerdictPartiallyTrue, VerdictMisleading, VerdictUnverifiable:
		return true
	}
	return false
}

// ConfidenceLevel buckets a confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Valid reports whether c is one of the enumerated levels.
func (c ConfidenceLevel) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// LevelForScore maps a score to its bucket: >=0.75 high, >=0.5 medium, else low.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= 0.75:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// VerdictJudgment is the output of the verdict engine.
type VerdictJudgment struct {
	Verdict         Verdict         `json:"verdict"`
	ConfidenceLevel ConfidenceLevel `json:"confidence"`
	ConfidenceScore float64         `json:"confidence_score"` // [0,1]
	Summary         string          `json:"summary"`
	Reasoning       string          `json:"reasoning"`
}

package model

import "time"

// AnalyzeRequest is a single item submitted for analysis.
type AnalyzeRequest struct {
	Content   string         `json:"content"`
	MediaType string         `json:"media_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AnalysisResult is the record emitted for every analysis request.
type AnalysisResult struct {
	ID              string           `json:"id"`
	Verdict         Verdict          `json:"verdict"`
	Confidence      ConfidenceLevel  `json:"confidence"`
	ConfidenceScore float64          `json:"confidence_score"`
	Summary         string           `json:"summary"`
	Evidence        []EvidenceSource `json:"evidence"`
	Reasoning       string           `json:"reasoning"`
	Timestamp       time.Time        `json:"timestamp"`
	ProcessingTime  float64          `json:"processing_time"` // Seconds
}

// Degradation records a dependency failure that was absorbed by a fallback.
type Degradation struct {
	Stage  string `json:"stage"`  // normalize, search, verdict, history
	Reason string `json:"reason"` // Underlying failure, human-readable
}

// Diagnostics describes how a result was produced.
type Diagnostics struct {
	SearchQuery  string         `json:"search_query"`
	SearchOrigin string         `json:"search_origin"`   // provider, cache, synthetic
	Strategy     string         `json:"strategy"`        // model, rule_based
	Trace        []string       `json:"trace,omitempty"` // Verdict engine state trace
	Degradations []Degradation  `json:"degradations,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"` // Normalized content metadata
}

// Degraded reports whether any dependency fell back.
func (d *Diagnostics) Degraded() bool {
	return d != nil && len(d.Degradations) > 0
}

// HistoryRecord is the retained summary of a completed analysis.
type HistoryRecord struct {
	ID              string          `json:"id"`
	ContentHash     string          `json:"content_hash"`
	MediaType       MediaType       `json:"media_type"`
	Verdict         Verdict         `json:"verdict"`
	Confidence      ConfidenceLevel `json:"confidence"`
	ConfidenceScore float64         `json:"confidence_score"`
	ProcessingTime  float64         `json:"processing_time"`
	Timestamp       time.Time       `json:"timestamp"`
}

// AnalyticsSummary aggregates history records over a time window.
type AnalyticsSummary struct {
	Days                  int                     `json:"days"`
	TotalAnalyses         int                     `json:"total_analyses"`
	VerdictBreakdown      map[Verdict]int         `json:"verdict_breakdown"`
	ConfidenceBreakdown   map[ConfidenceLevel]int `json:"confidence_breakdown"`
	MediaTypeBreakdown    map[MediaType]int       `json:"media_type_breakdown"`
	AverageProcessingTime float64                 `json:"average_processing_time"`
}

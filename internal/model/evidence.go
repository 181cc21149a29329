package model

// EvidenceSource is a single web-sourced record with derived scores.
// Values are never mutated after the gateway constructs them.
type EvidenceSource struct {
	URL              string  `json:"url"`               // Source URL as returned by the provider
	Title            string  `json:"title"`             // Result title, HTML stripped
	Snippet          string  `json:"snippet"`           // Result snippet, HTML stripped
	RelevanceScore   float64 `json:"relevance_score"`   // [0,1] query match
	CredibilityScore float64 `json:"credibility_score"` // [0,1] domain trust estimate
}

// SearchResponse is the payload returned by the search endpoints.
type SearchResponse struct {
	Sources    []EvidenceSource `json:"sources"`
	TotalFound int              `json:"total_found"`
	SearchTime float64          `json:"search_time"` // Seconds
	Origin     string           `json:"origin,omitempty"`
}

// Package history retains completed analyses for listing and analytics.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/veritas/internal/model"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("analysis not found")

// Store receives every completed analysis.
type Store interface {
	Store(ctx context.Context, result *model.AnalysisResult, req model.AnalyzeRequest) error
}

// Filter narrows List results. Zero values disable a filter.
type Filter struct {
	MediaType   model.MediaType
	Verdict     model.Verdict
	ContentHash string
	Days        int
	Limit       int
	Offset      int
}

type entry struct {
	record model.HistoryRecord
	result model.AnalysisResult
}

// MemoryStore keeps analyses in memory until the retention period passes.
// Once MaxRecords is reached the oldest record is evicted.
type MemoryStore struct {
	mu         sync.Mutex
	entries    *gocache.Cache
	maxRecords int
	now        func() time.Time
}

// NewMemoryStore creates a store from cfg.
func NewMemoryStore(cfg model.HistoryConfig) *MemoryStore {
	retention := cfg.Retention
	if retention <= 0 {
		retention = gocache.NoExpiration
	}
	cleanup := time.Hour
	if retention > 0 && retention < cleanup {
		cleanup = retention
	}
	return &MemoryStore{
		entries:    gocache.New(retention, cleanup),
		maxRecords: cfg.MaxRecords,
		now:        time.Now,
	}
}

// ContentHash returns the hex xxhash64 of content.
func ContentHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.ChecksumString64(content))
}

// Store records result. The request supplies the content hash and media type.
func (s *MemoryStore) Store(ctx context.Context, result *model.AnalysisResult, req model.AnalyzeRequest) error {
	if result == nil || result.ID == "" {
		return errors.New("history: result without id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mediaType, err := model.ParseMediaType(req.MediaType)
	if err != nil {
		mediaType = model.MediaType(req.MediaType)
	}

	e := entry{
		record: model.HistoryRecord{
			ID:              result.ID,
			ContentHash:     ContentHash(req.Content),
			MediaType:       mediaType,
			Verdict:         result.Verdict,
			Confidence:      result.Confidence,
			ConfidenceScore: result.ConfidenceScore,
			ProcessingTime:  result.ProcessingTime,
			Timestamp:       result.Timestamp,
		},
		result: cloneResult(result),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries.Get(result.ID); !exists && s.maxRecords > 0 {
		for s.entries.ItemCount() >= s.maxRecords {
			if !s.evictOldest() {
				break
			}
		}
	}
	s.entries.SetDefault(result.ID, e)
	return nil
}

// Get returns the full result stored under id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.AnalysisResult, error) {
	v, ok := s.entries.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	e := v.(entry)
	result := cloneResult(&e.result)
	return &result, nil
}

// cloneResult copies r so callers never share the evidence slice with the
// stored entry.
func cloneResult(r *model.AnalysisResult) model.AnalysisResult {
	out := *r
	if r.Evidence != nil {
		out.Evidence = append([]model.EvidenceSource(nil), r.Evidence...)
	}
	return out
}

// Delete removes the record stored under id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries.Get(id); !ok {
		return ErrNotFound
	}
	s.entries.Delete(id)
	return nil
}

// List returns matching records, newest first, and the total match count
// before pagination.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]model.HistoryRecord, int, error) {
	var since time.Time
	if f.Days > 0 {
		since = s.now().Add(-time.Duration(f.Days) * 24 * time.Hour)
	}

	var matched []model.HistoryRecord
	for _, rec := range s.snapshot() {
		if f.MediaType != "" && rec.MediaType != f.MediaType {
			continue
		}
		if f.Verdict != "" && rec.Verdict != f.Verdict {
			continue
		}
		if f.ContentHash != "" && rec.ContentHash != f.ContentHash {
			continue
		}
		if !since.IsZero() && rec.Timestamp.Before(since) {
			continue
		}
		matched = append(matched, rec)
	}

	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []model.HistoryRecord{}, total, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	if matched == nil {
		matched = []model.HistoryRecord{}
	}
	return matched, total, nil
}

// Summary aggregates the records of the last days days.
func (s *MemoryStore) Summary(ctx context.Context, days int) (model.AnalyticsSummary, error) {
	records, _, err := s.List(ctx, Filter{Days: days})
	if err != nil {
		return model.AnalyticsSummary{}, err
	}

	sum := model.AnalyticsSummary{
		Days:                days,
		TotalAnalyses:       len(records),
		VerdictBreakdown:    make(map[model.Verdict]int),
		ConfidenceBreakdown: make(map[model.ConfidenceLevel]int),
		MediaTypeBreakdown:  make(map[model.MediaType]int),
	}
	var totalTime float64
	for _, rec := range records {
		sum.VerdictBreakdown[rec.Verdict]++
		sum.ConfidenceBreakdown[rec.Confidence]++
		sum.MediaTypeBreakdown[rec.MediaType]++
		totalTime += rec.ProcessingTime
	}
	if len(records) > 0 {
		sum.AverageProcessingTime = totalTime / float64(len(records))
	}
	return sum, nil
}

// Len returns the number of retained records.
func (s *MemoryStore) Len() int {
	return s.entries.ItemCount()
}

// snapshot returns all live records sorted newest first.
func (s *MemoryStore) snapshot() []model.HistoryRecord {
	items := s.entries.Items()
	records := make([]model.HistoryRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.Object.(entry).record)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records
}

// evictOldest must be called with s.mu held.
func (s *MemoryStore) evictOldest() bool {
	var oldestID string
	var oldest time.Time
	for id, item := range s.entries.Items() {
		ts := item.Object.(entry).record.Timestamp
		if oldestID == "" || ts.Before(oldest) {
			oldestID, oldest = id, ts
		}
	}
	if oldestID == "" {
		return false
	}
	s.entries.Delete(oldestID)
	return true
}

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/veritas/internal/apperr"
	"github.com/ppiankov/veritas/internal/history"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/search"
)

// analyzeResponse is an AnalysisResult, optionally with diagnostics.
type analyzeResponse struct {
	*model.AnalysisResult
	Diagnostics *model.Diagnostics `json:"diagnostics,omitempty"`
}

func (s *Server) analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.NewRequestError("invalid request body", err))
		return
	}

	result, diag, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := analyzeResponse{AnalysisResult: result}
	if wantDiagnostics(c) {
		resp.Diagnostics = diag
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) analyzeBatch(c *gin.Context) {
	var reqs []model.AnalyzeRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		_ = c.Error(apperr.NewRequestError("request body must be a JSON array of analyze requests", err))
		return
	}

	results, err := s.analyzer.AnalyzeBatch(c.Request.Context(), reqs)
	if err != nil {
		if errors.Is(err, model.ErrBatchTooLarge) {
			_ = c.Error(apperr.NewValidationError("Maximum 10 items per batch", err))
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, results)
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) searchSources(c *gin.Context) {
	query, limit, ok := searchParams(c, 10, search.MaxLimit)
	if !ok {
		return
	}
	s.respondSearch(c, func() search.Result {
		return s.searcher.Fetch(c.Request.Context(), query, limit)
	})
}

func (s *Server) searchSourcesPost(c *gin.Context) {
	req := searchRequest{Limit: 10}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperr.NewRequestError("invalid request body", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		_ = c.Error(apperr.NewRequestError("query is required", nil))
		return
	}
	if req.Limit < 1 || req.Limit > search.MaxLimit {
		_ = c.Error(apperr.NewRequestError("limit must be between 1 and 50", nil))
		return
	}
	s.respondSearch(c, func() search.Result {
		return s.searcher.Fetch(c.Request.Context(), req.Query, req.Limit)
	})
}

func (s *Server) searchCredible(c *gin.Context) {
	query, limit, ok := searchParams(c, 5, 20)
	if !ok {
		return
	}
	minCred, ok := floatQuery(c, "min_credibility", 0.7, 0, 1)
	if !ok {
		return
	}
	s.respondSearch(c, func() search.Result {
		return s.searcher.SearchCredible(c.Request.Context(), query, limit, minCred)
	})
}

func (s *Server) searchFactCheck(c *gin.Context) {
	query, limit, ok := searchParams(c, 5, 20)
	if !ok {
		return
	}
	s.respondSearch(c, func() search.Result {
		return s.searcher.SearchFactCheck(c.Request.Context(), query, limit)
	})
}

func (s *Server) searchAcademic(c *gin.Context) {
	query, limit, ok := searchParams(c, 5, 20)
	if !ok {
		return
	}
	s.respondSearch(c, func() search.Result {
		return s.searcher.SearchAcademic(c.Request.Context(), query, limit)
	})
}

func (s *Server) respondSearch(c *gin.Context, run func() search.Result) {
	start := time.Now()
	res := run()
	if res.Degraded != "" {
		s.logger.Warn("search degraded", "provider", res.Provider, "reason", res.Degraded)
	}
	sources := res.Sources
	if sources == nil {
		sources = []model.EvidenceSource{}
	}
	c.JSON(http.StatusOK, model.SearchResponse{
		Sources:    sources,
		TotalFound: len(sources),
		SearchTime: time.Since(start).Seconds(),
		Origin:     string(res.Origin),
	})
}

func (s *Server) listHistory(c *gin.Context) {
	days, ok := intQuery(c, "days", 30, 1, 365)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 50, 1, 500)
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset", 0, 0, 1<<31-1)
	if !ok {
		return
	}

	f := history.Filter{Days: days, Limit: limit, Offset: offset}
	if mt := c.Query("media_type"); mt != "" {
		parsed, err := model.ParseMediaType(mt)
		if err != nil {
			_ = c.Error(apperr.NewRequestError(err.Error(), err))
			return
		}
		f.MediaType = parsed
	}
	if v := c.Query("verdict"); v != "" {
		f.Verdict = model.Verdict(v)
		if !f.Verdict.Valid() {
			_ = c.Error(apperr.NewRequestError("unknown verdict: "+v, nil))
			return
		}
	}

	records, total, err := s.history.List(c.Request.Context(), f)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("X-Total-Count", strconv.Itoa(total))
	c.JSON(http.StatusOK, records)
}

func (s *Server) similarHistory(c *gin.Context) {
	hash := c.Query("content_hash")
	if hash == "" {
		_ = c.Error(apperr.NewRequestError("content_hash is required", nil))
		return
	}
	limit, ok := intQuery(c, "limit", 10, 1, 50)
	if !ok {
		return
	}

	records, _, err := s.history.List(c.Request.Context(), history.Filter{ContentHash: hash, Limit: limit})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) getHistory(c *gin.Context) {
	result, err := s.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(historyError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) deleteHistory(c *gin.Context) {
	id := c.Param("id")
	if err := s.history.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(historyError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Analysis deleted", "id": id})
}

func (s *Server) analyticsSummary(c *gin.Context) {
	days, ok := intQuery(c, "days", 30, 1, 365)
	if !ok {
		return
	}
	summary, err := s.history.Summary(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func historyError(err error) error {
	if errors.Is(err, history.ErrNotFound) {
		return apperr.NewNotFoundError("Analysis not found")
	}
	return err
}

func wantDiagnostics(c *gin.Context) bool {
	v, err := strconv.ParseBool(c.DefaultQuery("diagnostics", "false"))
	return err == nil && v
}

func searchParams(c *gin.Context, defLimit, maxLimit int) (string, int, bool) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		_ = c.Error(apperr.NewRequestError("query is required", nil))
		return "", 0, false
	}
	limit, ok := intQuery(c, "limit", defLimit, 1, maxLimit)
	return query, limit, ok
}

// intQuery reads an integer query parameter in [lo,hi]. On failure it
// records a request error and returns false.
func intQuery(c *gin.Context, name string, def, lo, hi int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		_ = c.Error(apperr.NewRequestError(
			name+" must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi), err))
		return 0, false
	}
	return v, true
}

func floatQuery(c *gin.Context, name string, def, lo, hi float64) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < lo || v > hi {
		_ = c.Error(apperr.NewRequestError(
			name+" must be a number between "+strconv.FormatFloat(lo, 'f', -1, 64)+" and "+strconv.FormatFloat(hi, 'f', -1, 64), err))
		return 0, false
	}
	return v, true
}

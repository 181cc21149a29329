// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ppiankov/veritas/internal/apperr"
	"github.com/ppiankov/veritas/internal/history"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/search"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "veritas"

// Analyzer runs analyses.
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalyzeRequest) (*model.AnalysisResult, *model.Diagnostics, error)
	AnalyzeBatch(ctx context.Context, reqs []model.AnalyzeRequest) ([]*model.AnalysisResult, error)
}

// Searcher fetches evidence for the search endpoints.
type Searcher interface {
	Fetch(ctx context.Context, query string, limit int) search.Result
	SearchCredible(ctx context.Context, query string, limit int, minCredibility float64) search.Result
	SearchFactCheck(ctx context.Context, query string, limit int) search.Result
	SearchAcademic(ctx context.Context, query string, limit int) search.Result
}

// HistoryReader serves the history and analytics endpoints.
type HistoryReader interface {
	Get(ctx context.Context, id string) (*model.AnalysisResult, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f history.Filter) ([]model.HistoryRecord, int, error)
	Summary(ctx context.Context, days int) (model.AnalyticsSummary, error)
}

// Server is the HTTP API.
type Server struct {
	cfg      model.ServerConfig
	analyzer Analyzer
	searcher Searcher
	history  HistoryReader
	logger   *slog.Logger
	router   *gin.Engine
}

// New builds the router. history may be nil, which disables the history
// and analytics endpoints.
func New(cfg model.ServerConfig, analyzer Analyzer, searcher Searcher, history HistoryReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		searcher: searcher,
		history:  history,
		logger:   logger,
	}

	r := gin.New()
	r.Use(RequestID())
	r.Use(RequestLogger(logger))
	r.Use(apperr.RecoveryHandler())
	r.Use(apperr.ErrorHandler())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	s.attachRoutes(r)
	s.router = r

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("Server exited")
	return nil
}

// corsConfig allows credentials for the listed origins. With no origins
// every origin is allowed without credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) attachRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyze", s.analyze)
		v1.POST("/analyze/batch", s.analyzeBatch)

		v1.GET("/search-sources", s.searchSources)
		v1.POST("/search-sources", s.searchSourcesPost)
		v1.GET("/search-sources/credible", s.searchCredible)
		v1.GET("/search-sources/fact-check", s.searchFactCheck)
		v1.GET("/search-sources/academic", s.searchAcademic)
	}

	if s.history != nil {
		v1.GET("/history", s.listHistory)
		v1.GET("/history/search/similar", s.similarHistory)
		v1.GET("/history/:id", s.getHistory)
		v1.DELETE("/history/:id", s.deleteHistory)
		v1.GET("/analytics/summary", s.analyticsSummary)
		v1.GET("/analytics/overview", s.analyticsSummary)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": ServiceName})
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/veritas/internal/history"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/ppiankov/veritas/internal/server"
	"github.com/ppiankov/veritas/internal/telemetry"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the analysis API over HTTP.

Endpoints:
  GET  /health
  POST /api/v1/analyze
  POST /api/v1/analyze/batch
  GET  /api/v1/search-sources (also POST, /credible, /fact-check, /academic)
  GET  /api/v1/history, /api/v1/history/:id, /api/v1/analytics/summary

Example:
  veritas serve
  veritas serve --addr :9000 --mode debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().String("mode", "", "gin mode (debug, release, test)")
	serveCmd.Flags().Bool("no-history", false, "do not retain analysis history")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.mode", serveCmd.Flags().Lookup("mode"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewProvider(ctx, cfg.Telemetry, Version)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tp.Shutdown(shutdownCtx)
	}()

	opts := []pipeline.Option{pipeline.WithTelemetry(tp), pipeline.WithLogger(logger)}
	var store *history.MemoryStore
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		store = history.NewMemoryStore(cfg.History)
		opts = append(opts, pipeline.WithHistory(store))
	}

	p, err := pipeline.NewPipeline(cfg, opts...)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer p.Wait()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := p.Engine().CheckModel(pingCtx); err != nil {
		logger.Warn("model provider unreachable, verdicts will fall back to rules until it recovers", "error", err)
	}
	cancelPing()

	var reader server.HistoryReader
	if store != nil {
		reader = store
	}

	logger.Info("starting veritas",
		"version", Version,
		"addr", cfg.Server.Addr,
		"search_provider", p.Gateway().ProviderName(),
		"llm_provider", cfg.LLM.Provider,
		"history", store != nil,
	)

	return server.New(cfg.Server, p, p.Gateway(), reader, logger).Run(ctx)
}

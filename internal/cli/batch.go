package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/ppiankov/veritas/internal/report"
	"github.com/ppiankov/veritas/internal/worker"
)

var (
	concurrency    int
	outputDir      string
	batchTimeout   time.Duration
	batchMediaType string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many items from a file in parallel",
	Long: `Batch analyzes every line of a file concurrently:
- One item per line; lines starting with http(s):// are analyzed as URLs
- Prefix a line with "image:", "video:", "text:" or "url:" to set its type
- Blank lines and lines starting with # are skipped
- Writes a JSON and Markdown report per item

Example:
  veritas batch claims.txt
  veritas batch claims.txt --concurrency 4 --output-dir ./reports
  veritas batch urls.txt --type url --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./veritas-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchMediaType, "type", "text", "media type for unprefixed lines")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	defaultType, err := model.ParseMediaType(batchMediaType)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency == 0 {
		concurrency = cfg.Concurrency.Workers
	}
	if concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Veritas Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	processor := worker.NewBatchProcessor(p, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Processing with %d workers...\n\n", concurrency)
	results, err := processor.ProcessFile(ctx, file, defaultType)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := report.NewRenderer(!noFooter)
	counts := map[model.Verdict]int{}
	successCount := 0
	failureCount := 0

	for _, res := range results {
		label := truncate(res.Request.Content, 60)
		if res.Failed() {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", label, res.Error)
			continue
		}

		rep := report.Report{
			Content:     res.Request.Content,
			MediaType:   res.Request.MediaType,
			Result:      res.Result,
			Diagnostics: res.Diagnostics,
		}
		slug := fmt.Sprintf("%03d-%s", res.Index+1, sanitizeFilename(res.Request.Content))
		if err := renderer.RenderJSON(rep, filepath.Join(outputDir, slug+".json")); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", label, err)
			continue
		}
		if err := renderer.RenderMarkdown(rep, filepath.Join(outputDir, slug+".md")); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", label, err)
			continue
		}

		successCount++
		counts[res.Result.Verdict]++
		fmt.Fprintf(os.Stderr, "✓ %s → %s (%.2f)\n", label, report.VerdictLabel(res.Result.Verdict), res.Result.ConfidenceScore)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d items\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	for _, v := range model.Verdicts {
		if counts[v] > 0 {
			fmt.Fprintf(os.Stderr, "    %-12s %d\n", report.VerdictLabel(v)+":", counts[v])
		}
	}
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d items failed", failureCount)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
	"\n", "-",
	"\t", "-",
)

// sanitizeFilename turns content into a short slug safe for file names.
func sanitizeFilename(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".-_")

	if len(s) > 60 {
		s = s[:60]
	}
	if s == "" {
		s = "item"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/normalize"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/ppiankov/veritas/internal/report"
)

var (
	mediaTypeFlag   string
	ocrText         string
	transcript      string
	jsonOut         string
	mdOut           string
	docxOut         string
	analyzeTimeout  time.Duration
	noFooter        bool
	showDiagnostics bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <content>",
	Short: "Analyze content and print a verdict",
	Long: `Analyze normalizes the content, searches for evidence and assigns a verdict.

Content is plain text, a URL, or an image/video reference. For images and
videos pass the extracted text with --ocr-text or --transcript.

Example:
  veritas analyze "The Earth is flat"
  veritas analyze https://example.com/article --type url --md report.md
  veritas analyze photo.jpg --type image --ocr-text "Vaccines cause autism" --json out.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&mediaTypeFlag, "type", "t", "text", "media type (text, url, image, video)")
	analyzeCmd.Flags().StringVar(&ocrText, "ocr-text", "", "text extracted from an image")
	analyzeCmd.Flags().StringVar(&transcript, "transcript", "", "transcript of a video")
	analyzeCmd.Flags().StringVar(&jsonOut, "json", "", "write JSON report to file")
	analyzeCmd.Flags().StringVar(&mdOut, "md", "", "write Markdown report to file")
	analyzeCmd.Flags().StringVar(&docxOut, "docx", "", "write DOCX report to file")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 60*time.Second, "analysis timeout")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in reports")
	analyzeCmd.Flags().BoolVar(&showDiagnostics, "diagnostics", false, "print how the verdict was produced")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	mt, err := model.ParseMediaType(mediaTypeFlag)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	req := buildRequest(args[0], mt, ocrText, transcript)
	result, diag, err := p.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	printResult(result)
	if showDiagnostics {
		printDiagnostics(diag)
	}

	rep := report.Report{
		Content:     req.Content,
		MediaType:   req.MediaType,
		Result:      result,
		Diagnostics: diag,
	}
	return writeReports(report.NewRenderer(!noFooter), rep, jsonOut, mdOut, docxOut)
}

// buildRequest assembles an analysis request, attaching extracted text as
// metadata for images and videos.
func buildRequest(content string, mt model.MediaType, ocr, transcript string) model.AnalyzeRequest {
	req := model.AnalyzeRequest{
		Content:   content,
		MediaType: string(mt),
	}
	meta := map[string]any{}
	if ocr != "" && mt == model.MediaImage {
		meta[normalize.MetaOCRText] = ocr
	}
	if transcript != "" && mt == model.MediaVideo {
		meta[normalize.MetaTranscript] = transcript
	}
	if len(meta) > 0 {
		req.Metadata = meta
	}
	return req
}

func writeReports(renderer *report.Renderer, rep report.Report, jsonPath, mdPath, docxPath string) error {
	writers := []struct {
		path   string
		kind   string
		render func(report.Report, string) error
	}{
		{jsonPath, "JSON", renderer.RenderJSON},
		{mdPath, "Markdown", renderer.RenderMarkdown},
		{docxPath, "DOCX", renderer.RenderDOCX},
	}

	for _, w := range writers {
		if w.path == "" {
			continue
		}
		if err := w.render(rep, w.path); err != nil {
			return fmt.Errorf("write %s report: %w", w.kind, err)
		}
		abs, _ := filepath.Abs(w.path)
		fmt.Fprintf(os.Stderr, "✓ %s report: %s\n", w.kind, abs)
	}
	return nil
}

func printResult(r *model.AnalysisResult) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s (%s confidence, %.2f)\n", report.VerdictLabel(r.Verdict), r.Confidence, r.ConfidenceScore)
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  %s\n\n", r.Summary)
	fmt.Printf("  Reasoning: %s\n\n", r.Reasoning)

	if len(r.Evidence) == 0 {
		fmt.Println("  No evidence sources.")
	} else {
		fmt.Printf("  Evidence (%d):\n", len(r.Evidence))
		for i, src := range r.Evidence {
			fmt.Printf("  %2d. [cred %.2f, rel %.2f] %s\n", i+1, src.CredibilityScore, src.RelevanceScore, src.Title)
			fmt.Printf("      %s\n", src.URL)
		}
	}
	fmt.Println()
	fmt.Printf("  ID: %s  (%.2fs)\n\n", r.ID, r.ProcessingTime)
}

func printDiagnostics(d *model.Diagnostics) {
	if d == nil {
		return
	}
	fmt.Println("  Diagnostics:")
	fmt.Printf("    Query:    %s\n", d.SearchQuery)
	fmt.Printf("    Origin:   %s\n", d.SearchOrigin)
	fmt.Printf("    Strategy: %s\n", d.Strategy)
	for _, deg := range d.Degradations {
		fmt.Printf("    ⚠️  %s: %s\n", deg.Stage, deg.Reason)
	}
	for _, w := range d.Warnings {
		fmt.Printf("    ⚠️  %s\n", w)
	}
	fmt.Println()
}

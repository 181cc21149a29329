package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/ppiankov/veritas/internal/search"
)

var (
	searchMode     string
	searchLimit    int
	minCredibility float64
	searchJSON     bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for evidence sources",
	Long: `Search runs the evidence gateway directly and prints scored sources.

Modes:
  general     every source, ranked as the provider returned them
  credible    sources at or above --min-credibility
  fact-check  fact-checking sites only
  academic    scholarly and encyclopedic sites only

Example:
  veritas search "moon landing hoax"
  veritas search "vaccine safety" --mode credible --min-credibility 0.8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchMode, "mode", "general", "search mode (general, credible, fact-check, academic)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of sources")
	searchCmd.Flags().Float64Var(&minCredibility, "min-credibility", 0.7, "minimum credibility for credible mode")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print JSON instead of a table")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchLimit < 1 || searchLimit > search.MaxLimit {
		return fmt.Errorf("--limit must be between 1 and %d", search.MaxLimit)
	}
	if minCredibility < 0 || minCredibility > 1 {
		return fmt.Errorf("--min-credibility must be between 0 and 1")
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

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Search.Timeout+cfg.Search.SimulatedDelay+5*time.Second)
	defer cancel()

	start := time.Now()
	res, err := runSearchMode(ctx, p.Gateway(), searchMode, args[0], searchLimit, minCredibility)
	if err != nil {
		return err
	}

	resp := model.SearchResponse{
		Sources:    res.Sources,
		TotalFound: len(res.Sources),
		SearchTime: time.Since(start).Seconds(),
		Origin:     string(res.Origin),
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Printf("\n%d sources for %q (%s, %s, %.2fs)\n\n", resp.TotalFound, args[0], res.Provider, res.Origin, resp.SearchTime)
	for i, src := range resp.Sources {
		fmt.Printf("%2d. [cred %.2f, rel %.2f] %s\n", i+1, src.CredibilityScore, src.RelevanceScore, src.Title)
		fmt.Printf("    %s\n", src.URL)
		if src.Snippet != "" {
			fmt.Printf("    %s\n", src.Snippet)
		}
	}
	if res.Degraded != "" {
		fmt.Fprintf(os.Stderr, "\n⚠️  Search degraded: %s\n", res.Degraded)
	}
	fmt.Println()
	return nil
}

func runSearchMode(ctx context.Context, g *search.Gateway, mode, query string, limit int, minCred float64) (search.Result, error) {
	switch mode {
	case "general", "":
		return g.Fetch(ctx, query, limit), nil
	case "credible":
		return g.SearchCredible(ctx, query, limit, minCred), nil
	case "fact-check", "factcheck":
		return g.SearchFactCheck(ctx, query, limit), nil
	case "academic":
		return g.SearchAcademic(ctx, query, limit), nil
	default:
		return search.Result{}, fmt.Errorf("unknown search mode %q (use general, credible, fact-check or academic)", mode)
	}
}

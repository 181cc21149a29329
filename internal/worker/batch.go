package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// Analyzer analyzes a single request.
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalyzeRequest) (*model.AnalysisResult, *model.Diagnostics, error)
}

// AnalyzeResult is the outcome of one request of a batch.
type AnalyzeResult struct {
	Index       int
	Request     model.AnalyzeRequest
	Result      *model.AnalysisResult
	Diagnostics *model.Diagnostics
	Error       error
}

// Failed reports whether the request produced no result.
func (r *AnalyzeResult) Failed() bool {
	return r.Error != nil || r.Result == nil
}

// BatchProcessor analyzes many requests concurrently.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessRequests analyzes reqs and returns one result per request, in
// input order.
func (b *BatchProcessor) ProcessRequests(ctx context.Context, reqs []model.AnalyzeRequest) []*AnalyzeResult {
	if len(reqs) == 0 {
		return []*AnalyzeResult{}
	}

	pool := NewPool[*AnalyzeResult](ctx, b.concurrency)
	pool.Start()

	for i, req := range reqs {
		i, req := i, req
		if _, ok := pool.Submit(func(ctx context.Context) *AnalyzeResult {
			result, diag, err := b.analyzer.Analyze(ctx, req)
			return &AnalyzeResult{Index: i, Request: req, Result: result, Diagnostics: diag, Error: err}
		}); !ok {
			break
		}
	}

	outcomes := pool.Wait()

	// Requests never run because ctx ended still get a result.
	out := make([]*AnalyzeResult, len(reqs))
	for i, req := range reqs {
		if i < len(outcomes) && outcomes[i].Ran {
			out[i] = outcomes[i].Value
			continue
		}
		err := context.Cause(ctx)
		if err == nil {
			err = context.Canceled
		}
		out[i] = &AnalyzeResult{Index: i, Request: req, Error: err}
	}
	return out
}

// ProcessFile reads requests from a file and analyzes them concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, defaultType model.MediaType) ([]*AnalyzeResult, error) {
	reqs, err := ReadRequestsFromFile(filePath, defaultType)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}

	return b.ProcessRequests(ctx, reqs), nil
}

// ReadRequestsFromFile reads one request per line. A line may start with a
// media type prefix such as "url:" or "image:"; otherwise http(s) links are
// URLs and everything else uses defaultType. Blank lines, # comments and
// duplicates are skipped.
func ReadRequestsFromFile(filePath string, defaultType model.MediaType) ([]model.AnalyzeRequest, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if defaultType == "" {
		defaultType = model.MediaText
	}

	var reqs []model.AnalyzeRequest
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req, err := parseLine(line, defaultType)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		key := req.MediaType + "\x00" + req.Content
		if !seen[key] {
			seen[key] = true
			reqs = append(reqs, req)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return reqs, nil
}

func parseLine(line string, defaultType model.MediaType) (model.AnalyzeRequest, error) {
	lower := strings.ToLower(line)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return model.AnalyzeRequest{Content: line, MediaType: string(model.MediaURL)}, nil
	}

	if prefix, rest, ok := strings.Cut(line, ":"); ok {
		if mt, err := model.ParseMediaType(prefix); err == nil {
			rest = strings.TrimSpace(rest)
			if rest == "" {
				return model.AnalyzeRequest{}, fmt.Errorf("empty %s content", mt)
			}
			return model.AnalyzeRequest{Content: rest, MediaType: string(mt)}, nil
		}
	}

	return model.AnalyzeRequest{Content: line, MediaType: string(defaultType)}, nil
}

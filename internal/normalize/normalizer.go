// Package normalize turns submitted content into searchable text and a
// keyword search query.
package normalize

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// Metadata keys written by the normalizer.
const (
	MetaSourceURL = "source_url"
	MetaTitle     = "title"
	MetaFilePath  = "file_path"
	MetaError     = "error"
)

// Fixed search queries used when media carries no extracted text.
const (
	ImageQuery = "image analysis verification"
	VideoQuery = "video content verification"
)

var errNoFetcher = errors.New("no page fetcher configured")

// Result is the outcome of normalization. Degraded is set when a page
// fetch failed and the placeholder text was used instead.
type Result struct {
	Content  model.NormalizedContent
	Degraded string
}

// Normalizer converts Content into NormalizedContent. It holds no
// request-scoped state and is safe for concurrent use.
type Normalizer struct {
	pages  PageFetcher
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. pages fetches URL content.
func NewNormalizer(pages PageFetcher, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{pages: pages, logger: logger}
}

// Normalize builds the variant for mediaType and normalizes it.
func (n *Normalizer) Normalize(ctx context.Context, raw string, mediaType model.MediaType, metadata map[string]any) (Result, error) {
	content, err := NewContent(raw, mediaType, metadata)
	if err != nil {
		return Result{}, err
	}
	return n.NormalizeContent(ctx, content), nil
}

// NormalizeContent normalizes an already-built variant.
func (n *Normalizer) NormalizeContent(ctx context.Context, c Content) Result {
	return c.accept(ctx, n)
}

func (n *Normalizer) visitText(_ context.Context, c Text) Result {
	return Result{Content: model.NormalizedContent{
		TextContent: c.Body,
		SearchQuery: ExtractKeywords(c.Body),
		Metadata:    copyMeta(c.Metadata),
	}}
}

func (n *Normalizer) visitURL(ctx context.Context, c URL) Result {
	meta := copyMeta(c.Metadata)
	meta[MetaSourceURL] = c.Address

	var page *Page
	var err error
	if n.pages == nil {
		err = errNoFetcher
	} else {
		page, err = n.pages.FetchPage(ctx, c.Address)
	}

	if err != nil {
		n.logger.Warn("page fetch failed, using placeholder", "url", c.Address, "error", err)
		meta[MetaError] = err.Error()
		return Result{
			Content: model.NormalizedContent{
				TextContent: "Content from URL: " + c.Address,
				SearchQuery: c.Address,
				Metadata:    meta,
			},
			Degraded: err.Error(),
		}
	}

	meta[MetaTitle] = page.Title
	text := joinNonEmpty(". ", page.Title, page.Text)
	return Result{Content: model.NormalizedContent{
		TextContent: text,
		SearchQuery: ExtractKeywords(text),
		Metadata:    meta,
	}}
}

func (n *Normalizer) visitImage(_ context.Context, c Image) Result {
	meta := copyMeta(c.Metadata)
	meta[MetaFilePath] = c.Path

	if c.OCRText != "" {
		return Result{Content: model.NormalizedContent{
			TextContent: c.OCRText,
			SearchQuery: ExtractKeywords(c.OCRText),
			Metadata:    meta,
		}}
	}
	return Result{Content: model.NormalizedContent{
		TextContent: "Image analysis for file: " + c.Path,
		SearchQuery: ImageQuery,
		Metadata:    meta,
	}}
}

func (n *Normalizer) visitVideo(_ context.Context, c Video) Result {
	meta := copyMeta(c.Metadata)
	meta[MetaFilePath] = c.Path

	if c.Transcript != "" {
		return Result{Content: model.NormalizedContent{
			TextContent: c.Transcript,
			SearchQuery: ExtractKeywords(c.Transcript),
			Metadata:    meta,
		}}
	}
	return Result{Content: model.NormalizedContent{
		TextContent: "Video analysis for file: " + c.Path,
		SearchQuery: VideoQuery,
		Metadata:    meta,
	}}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

package search

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ppiankov/veritas/internal/model"
)

// Hit is a single ranked result returned by a provider.
type Hit struct {
	URL       string
	Title     string
	Snippet   string
	Publisher string // Publisher site URL when URL is a redirect wrapper
}

// Provider queries one external search service.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Search returns up to limit results in provider ranking order.
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// NewProvider creates the provider named in cfg. It returns nil, nil when no
// provider is configured or its credentials are missing, which selects the
// synthetic fallback.
func NewProvider(cfg model.SearchConfig, client *http.Client) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "google":
		if cfg.APIKey == "" || cfg.EngineID == "" {
			return nil, nil
		}
		return NewGoogleProvider(cfg, client), nil

	case "googlenews", "news":
		return NewNewsProvider(cfg, client), nil

	case "", "synthetic":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s (supported: google, googlenews)", cfg.Provider)
	}
}

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips markup from provider text and collapses whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

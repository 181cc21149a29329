package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed/rss"

	"github.com/ppiankov/veritas/internal/model"
)

const defaultNewsEndpoint = "https://news.google.com/rss/search"

// NewsProvider searches the Google News RSS feed. It needs no credentials.
type NewsProvider struct {
	client   *http.Client
	endpoint string
	language string
	region   string
}

// NewNewsProvider creates a new RSS search provider
func NewNewsProvider(cfg model.SearchConfig, client *http.Client) *NewsProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultNewsEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	region := strings.ToUpper(cfg.Region)
	if region == "" {
		region = "US"
	}
	return &NewsProvider{client: client, endpoint: endpoint, language: lang, region: region}
}

// Name returns the provider name
func (p *NewsProvider) Name() string {
	return "googlenews"
}

// Search fetches the feed for query and returns the first limit items.
func (p *NewsProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	u := fmt.Sprintf("%s?q=%s&hl=%s&gl=%s&ceid=%s",
		p.endpoint,
		url.QueryEscape(query),
		url.QueryEscape(p.language+"-"+p.region),
		url.QueryEscape(p.region),
		url.QueryEscape(p.region+":"+p.language),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.1")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news search: status %d", resp.StatusCode)
	}

	parser := rss.Parser{}
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	hits := make([]Hit, 0, limit)
	for _, item := range feed.Items {
		if len(hits) >= limit {
			break
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		hit := Hit{
			URL:     link,
			Title:   cleanText(item.Title),
			Snippet: cleanText(item.Description),
		}
		if item.Source != nil {
			hit.Publisher = strings.TrimSpace(item.Source.URL)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

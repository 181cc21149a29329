package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ppiankov/veritas/internal/model"
)

const (
	defaultGoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

	// Custom Search returns at most ten results per request.
	googleMaxResults = 10
)

// GoogleProvider queries the Google Custom Search JSON API.
type GoogleProvider struct {
	client   *http.Client
	endpoint string
	apiKey   string
	engineID string
	language string
}

// NewGoogleProvider creates a new Custom Search provider
func NewGoogleProvider(cfg model.SearchConfig, client *http.Client) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultGoogleEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &GoogleProvider{
		client:   client,
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		language: cfg.Language,
	}
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return "google"
}

type googleResponse struct {
	Items []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search issues one request for up to min(limit, 10) results.
func (p *GoogleProvider) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit > googleMaxResults {
		limit = googleMaxResults
	}

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))
	if p.language != "" {
		params.Set("hl", p.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr googleErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("google search error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("google search error: status %d", resp.StatusCode)
	}

	var parsed googleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		hits = append(hits, Hit{
			URL:     item.Link,
			Title:   cleanText(item.Title),
			Snippet: cleanText(item.Snippet),
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

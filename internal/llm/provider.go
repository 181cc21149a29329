// Package llm talks to the generative models that can judge a claim against
// its evidence.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Provider is a hosted or local model.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Complete submits one prompt and returns the model's text.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Ping checks that the provider is reachable and the credentials work.
	Ping(ctx context.Context) error
}

// CompletionRequest is the input of a single model call.
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string // overrides the configured model
	MaxTokens int    // overrides the configured limit

	// JSON asks the provider to constrain output to one JSON object where
	// the API supports it.
	JSON bool
}

// CompletionResponse is the model output.
type CompletionResponse struct {
	Text       string   // trimmed
	CitedURLs  []string // URLs found in Text
	Model      string
	TokensUsed int
}

// APIError is a non-2xx answer from a model API.
type APIError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s API error (%d): %s - %s", e.Provider, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Message)
}

// Temporary reports whether the same request may succeed later.
func (e *APIError) Temporary() bool {
	return e.Status == 429 || e.Status >= 500
}

// Config holds provider settings.
type Config struct {
	Provider    string // openai, anthropic, ollama, gemini, "" (disabled)
	Model       string
	APIKey      string
	BaseURL     string
	Timeout     int // seconds
	MaxTokens   int
	Temperature float32

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

const defaultMaxTokens = 1000

func (c Config) maxTokens(req CompletionRequest) int {
	switch {
	case req.MaxTokens > 0:
		return req.MaxTokens
	case c.MaxTokens > 0:
		return c.MaxTokens
	default:
		return defaultMaxTokens
	}
}

func (c Config) model(req CompletionRequest, fallback string) string {
	switch {
	case req.Model != "":
		return req.Model
	case c.Model != "":
		return c.Model
	default:
		return fallback
	}
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)"'\]]+`)

// ExtractURLs returns the distinct http(s) URLs in text, in order of appearance.
func ExtractURLs(text string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}

// UnknownURLs returns the URLs in cited that are not in allowed.
func UnknownURLs(cited, allowed []string) []string {
	known := make(map[string]bool, len(allowed))
	for _, u := range allowed {
		known[u] = true
	}
	var unknown []string
	for _, u := range cited {
		if !known[u] {
			unknown = append(unknown, u)
		}
	}
	return unknown
}

func response(text, model string, tokens int) *CompletionResponse {
	text = strings.TrimSpace(text)
	return &CompletionResponse{
		Text:       text,
		CitedURLs:  ExtractURLs(text),
		Model:      model,
		TokensUsed: tokens,
	}
}

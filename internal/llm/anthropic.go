package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-sonnet-20241022"
)

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	api    *jsonClient
	config Config
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float32            `json:"temperature,omitempty"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	ID         string           `json:"id"`
	Model      string           `json:"model"`
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider creates an Anthropic provider. An API key is required.
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	api := newJSONClient("anthropic", baseURL, config, 30*time.Second)
	api.header.Set("x-api-key", config.APIKey)
	api.header.Set("anthropic-version", anthropicVersion)
	api.errorDetail = func(body []byte) (string, string) {
		var e struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return e.Error.Type, e.Error.Message
	}

	return &AnthropicProvider{api: api, config: config}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Ping lists models, which needs a valid key but no tokens.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	return p.api.do(ctx, http.MethodGet, "/v1/models?limit=1", nil, nil)
}

// Complete sends one user message. In JSON mode the assistant turn is
// prefilled with "{" so the reply continues a JSON object.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	apiReq := anthropicRequest{
		Model:       p.config.model(req, anthropicDefaultModel),
		MaxTokens:   p.config.maxTokens(req),
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: p.config.Temperature,
	}
	if req.JSON {
		apiReq.Messages = append(apiReq.Messages, anthropicMessage{Role: "assistant", Content: "{"})
	}

	var resp anthropicResponse
	if err := p.api.do(ctx, http.MethodPost, "/v1/messages", apiReq, &resp); err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, errors.New("anthropic: response has no text content")
	}

	text := sb.String()
	if req.JSON {
		text = "{" + text
	}
	return response(text, resp.Model, resp.Usage.InputTokens+resp.Usage.OutputTokens), nil
}

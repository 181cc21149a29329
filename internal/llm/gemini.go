package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const geminiDefaultModel = "gemini-1.5-flash"

// GeminiProvider calls the Generative Language REST API.
type GeminiProvider struct {
	api    *jsonClient
	config Config
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float32 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// NewGeminiProvider creates a Gemini provider. An API key is required.
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	api := newJSONClient("gemini", baseURL, config, 30*time.Second)
	api.header.Set("x-goog-api-key", config.APIKey)
	api.errorDetail = func(body []byte) (string, string) {
		var e struct {
			Error struct {
				Status  string `json:"status"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return e.Error.Status, e.Error.Message
	}

	return &GeminiProvider{api: api, config: config}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Ping fetches the configured model's description.
func (p *GeminiProvider) Ping(ctx context.Context) error {
	return p.api.do(ctx, http.MethodGet, p.modelPath(CompletionRequest{}), nil, nil)
}

// Complete runs generateContent.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	apiReq := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     p.config.Temperature,
			MaxOutputTokens: p.config.maxTokens(req),
		},
	}
	if req.System != "" {
		apiReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSON {
		apiReq.GenerationConfig.ResponseMIMEType = "application/json"
	}

	var resp geminiResponse
	if err := p.api.do(ctx, http.MethodPost, p.modelPath(req)+":generateContent", apiReq, &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("gemini: response has no candidates")
	}

	first := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range first.Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, fmt.Errorf("gemini: empty response (finish reason %s)", first.FinishReason)
	}

	model := p.config.model(req, geminiDefaultModel)
	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}
	return response(sb.String(), model, resp.UsageMetadata.TotalTokenCount), nil
}

func (p *GeminiProvider) modelPath(req CompletionRequest) string {
	return "/v1beta/models/" + url.PathEscape(p.config.model(req, geminiDefaultModel))
}

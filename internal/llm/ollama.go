package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// OllamaProvider calls a local Ollama server.
type OllamaProvider struct {
	api    *jsonClient
	config Config
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Format  string        `json:"format,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
}

// NewOllamaProvider creates an Ollama provider. The server defaults to
// localhost:11434.
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	// local models load slowly on first use
	api := newJSONClient("ollama", baseURL, config, 60*time.Second)
	api.errorDetail = func(body []byte) (string, string) {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		return "", e.Error
	}

	return &OllamaProvider{api: api, config: config}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

// Ping lists the installed models.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.api.do(ctx, http.MethodGet, "/api/tags", nil, nil)
}

// Complete runs a non-streaming generate call.
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.config.model(req, "")
	if model == "" {
		return nil, errors.New("ollama: model must be specified (e.g. llama3.1:8b, mistral)")
	}

	apiReq := ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Options: ollamaOptions{
			Temperature: p.config.Temperature,
			NumPredict:  p.config.maxTokens(req),
		},
	}
	if req.JSON {
		apiReq.Format = "json"
	}

	var resp ollamaResponse
	if err := p.api.do(ctx, http.MethodPost, "/api/generate", apiReq, &resp); err != nil {
		return nil, err
	}

	out := response(resp.Response, resp.Model, resp.PromptEvalCount+resp.EvalCount)
	if out.TokensUsed == 0 {
		// Some models omit counts; roughly four characters per token.
		out.TokensUsed = (len(req.Prompt) + len(out.Text)) / 4
	}
	return out, nil
}

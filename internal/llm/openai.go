package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls the Chat Completions API through go-openai. BaseURL
// may point at any compatible server.
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates an OpenAI provider. An API key is required.
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(config, 30*time.Second)

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Ping lists models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return wrapOpenAIError(err)
	}
	return nil
}

// Complete runs one chat completion.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.config.model(req, openai.GPT4oMini)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   p.config.maxTokens(req),
		Temperature: p.config.Temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: response has no choices")
	}

	if resp.Model != "" {
		model = resp.Model
	}
	return response(resp.Choices[0].Message.Content, model, resp.Usage.TotalTokens), nil
}

// wrapOpenAIError converts go-openai's API errors to *APIError.
func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return &APIError{Provider: "openai", Status: apiErr.HTTPStatusCode, Code: code, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Provider: "openai", Status: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return fmt.Errorf("openai: %w", err)
}

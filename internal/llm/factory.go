package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// NewProvider creates the provider named in config. It returns nil, nil
// when no provider is configured.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAIProvider(config)
	case "anthropic", "claude":
		return NewAnthropicProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "gemini", "google":
		return NewGeminiProvider(config)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama, gemini)", config.Provider)
	}
}

// ConfigFromModel builds a provider Config from the service configuration.
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:    llmCfg.Provider,
		Model:       llmCfg.Model,
		APIKey:      llmCfg.APIKey,
		BaseURL:     llmCfg.BaseURL,
		Timeout:     llmCfg.Timeout,
		MaxTokens:   llmCfg.MaxTokens,
		Temperature: llmCfg.Temperature,
		HTTPProxy:   httpCfg.HTTPProxy,
		HTTPSProxy:  httpCfg.HTTPSProxy,
		NoProxy:     httpCfg.NoProxy,
	}
}

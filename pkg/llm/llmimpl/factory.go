// Package llmimpl builds raw provider clients from configuration.
package llmimpl

import (
	"fmt"

	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llm/llmimpl/anthropic"
	"interviewcoach/pkg/llm/llmimpl/google"
	"interviewcoach/pkg/llm/llmimpl/ollama"
	"interviewcoach/pkg/llm/llmimpl/openai"
)

// NewClient builds a raw model client for the configured provider.
// Resilience middleware is applied per agent, not here.
func NewClient(cfg llm.Config) (llm.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}

	switch cfg.Provider {
	case llm.ProviderGemini:
		return google.NewClient(cfg.APIKey, cfg.ModelName), nil
	case llm.ProviderOpenAI:
		return openai.NewClient(cfg.APIKey, cfg.ModelName, cfg.BaseURL), nil
	case llm.ProviderMistral:
		// Mistral speaks the OpenAI chat-completions dialect.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = llm.MistralBaseURL
		}
		return openai.NewClient(cfg.APIKey, cfg.ModelName, baseURL), nil
	case llm.ProviderAnthropic:
		return anthropic.NewClient(cfg.APIKey, cfg.ModelName), nil
	case llm.ProviderOllama:
		return ollama.NewClient(cfg.BaseURL, cfg.ModelName)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

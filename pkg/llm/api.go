// Package llm provides the model-service client interface shared by all
// interview agents, plus middleware chaining for resilience concerns.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message carrying instructions.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the caller.
	RoleUser CompletionRole = "user"
)

const (
	// TemperatureDefault is used for question generation, where some
	// variation between candidates is desirable.
	TemperatureDefault = 0.7

	// TemperatureAnalytic is used for answer analysis and report
	// generation. Slight randomness avoids degenerate loops while keeping
	// verdicts stable.
	TemperatureAnalytic = 0.2
)

// CompletionMessage represents one message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents the model service's reply.
type CompletionResponse struct {
	Content string
}

// Client defines the model-service boundary: a chat-style completion call
// that must return within the caller's context deadline.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// ModelName returns the model identifier for this client.
	ModelName() string
}

// NewRequest builds a completion request from a system prompt and a user
// prompt, the shape every agent in this system uses.
func NewRequest(systemPrompt, userPrompt string, temperature float32) CompletionRequest {
	return CompletionRequest{
		Messages: []CompletionMessage{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userPrompt},
		},
		MaxTokens:   4096,
		Temperature: temperature,
	}
}

// SplitMessages separates a request into its system instruction and the
// concatenated user content, for providers that take them separately.
func SplitMessages(messages []CompletionMessage) (system, user string) {
	var userParts []string
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case RoleSystem:
			if system == "" {
				system = msg.Content
			} else {
				system += "\n\n" + msg.Content
			}
		case RoleUser:
			userParts = append(userParts, msg.Content)
		}
	}
	return system, strings.Join(userParts, "\n\n")
}

// Config holds provider configuration for a model client.
type Config struct {
	Provider  string // gemini, openai, mistral, anthropic, ollama
	APIKey    string
	ModelName string
	BaseURL   string // OpenAI-compatible endpoints only
}

// Validate checks the client configuration.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider cannot be empty")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.Provider != "ollama" && c.APIKey == "" {
		return fmt.Errorf("API key cannot be empty for provider %s", c.Provider)
	}
	return nil
}

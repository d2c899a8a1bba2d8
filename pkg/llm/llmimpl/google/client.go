// Package google provides the Gemini model client.
package google

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llmerrors"
)

// Client wraps the Google GenAI SDK to implement llm.Client.
type Client struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewClient creates a Gemini client. The underlying SDK client requires a
// context, so creation is deferred to the first Complete call.
func NewClient(apiKey, model string) llm.Client {
	return &Client{apiKey: apiKey, model: model}
}

// Complete implements llm.Client.
func (g *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if g.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return llm.CompletionResponse{}, llmerrors.Wrap(llmerrors.ErrorTypeTransport, err, "failed to create Gemini client")
		}
		g.client = client
	}

	system, user := llm.SplitMessages(in.Messages)
	if user == "" {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeUnknown, "empty user prompt")
	}

	//nolint:gosec // MaxTokens validated at the config layer
	maxTokens := int32(in.MaxTokens)
	config := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: maxTokens,
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), config)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(fmt.Errorf("gemini call failed: %w", err))
	}
	if result == nil || result.Text() == "" {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "empty response from Gemini")
	}

	return llm.CompletionResponse{Content: result.Text()}, nil
}

// ModelName returns the configured model identifier.
func (g *Client) ModelName() string {
	return g.model
}

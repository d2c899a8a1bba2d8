// Package anthropic provides the Anthropic model client.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llmerrors"
)

// Client wraps the Anthropic SDK to implement llm.Client.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClient creates an Anthropic client for the given model.
func NewClient(apiKey, model string) llm.Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Complete implements llm.Client.
func (a *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	system, user := llm.SplitMessages(in.Messages)

	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(fmt.Errorf("message call failed: %w", err))
	}

	var sb strings.Builder
	for i := range msg.Content {
		block := &msg.Content[i]
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "no text blocks in response")
	}

	return llm.CompletionResponse{Content: sb.String()}, nil
}

// ModelName returns the configured model identifier.
func (a *Client) ModelName() string {
	return string(a.model)
}

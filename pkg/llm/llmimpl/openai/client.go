// Package openai provides the OpenAI-compatible model client. A base URL
// override covers Mistral and other compatible chat-completions endpoints.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llmerrors"
)

// Client wraps the official OpenAI Go SDK to implement llm.Client.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates an OpenAI client. baseURL may be empty for the default
// endpoint, or point to any chat-completions-compatible API.
func NewClient(apiKey, model, baseURL string) llm.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Complete implements llm.Client.
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(in.MaxTokens)),
		Temperature: openai.Float(float64(in.Temperature)),
	})
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.Classify(fmt.Errorf("chat completion failed: %w", err))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return llm.CompletionResponse{}, llmerrors.New(llmerrors.ErrorTypeEmptyResponse, "no choices in response")
	}

	return llm.CompletionResponse{Content: resp.Choices[0].Message.Content}, nil
}

// ModelName returns the configured model identifier.
func (o *Client) ModelName() string {
	return o.model
}

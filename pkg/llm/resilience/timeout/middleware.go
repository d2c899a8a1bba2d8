// Package timeout provides per-request timeout middleware for model clients.
package timeout

import (
	"context"
	"errors"
	"time"

	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llmerrors"
)

// Middleware wraps a model client with a per-request deadline. Expiry is
// classified as a Timeout error so the retry layer above can distinguish it
// from parent-context cancellation.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				resp, err := next.Complete(timeoutCtx, req)
				if err != nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
					return llm.CompletionResponse{}, llmerrors.Wrap(llmerrors.ErrorTypeTimeout, err,
						"model call exceeded "+duration.String())
				}
				return resp, err
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}

package cooldown

import (
	"context"
	"time"

	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llmerrors"
)

// Middleware wraps a model client with cooldown gating. It sits outside the
// retry layer: while the gate is closed, requests fail immediately with a
// Cooldown-classified error; when the inner chain fails with a retryable
// error class (meaning its retry budget is already spent), the gate trips.
func Middleware(gate *Gate) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if !gate.Allow() {
					return llm.CompletionResponse{}, llmerrors.Newf(llmerrors.ErrorTypeCooldown,
						"model service cooling down for %s", gate.Remaining().Round(time.Millisecond))
				}

				resp, err := next.Complete(ctx, req)
				if err == nil {
					gate.Reset()
					return resp, nil
				}

				if llmerrors.DecideFor(err) == llmerrors.DecisionRetry {
					gate.Trip()
				}
				return llm.CompletionResponse{}, err
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}

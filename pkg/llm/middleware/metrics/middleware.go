package metrics

import (
	"context"
	"time"

	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llmerrors"
)

// Middleware wraps a model client with metrics recording attributed to one
// logical agent.
func Middleware(recorder Recorder, agent string) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)

				errorType := ""
				if err != nil {
					errorType = llmerrors.TypeOf(err).String()
				}
				recorder.ObserveRequest(next.ModelName(), agent, err == nil, errorType, time.Since(start))

				return resp, err
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}

// Package observer implements the Observer agent: it scores each candidate
// answer, detects stop-intent, role-reversal, off-topic replies and
// suspected hallucinations, and steers the next question's difficulty and
// topic.
//
// The Observer never blocks the interview on model failure: heuristic
// sub-scores are computed locally for every answer, and an unusable model
// analysis degrades the verdict instead of failing it.
package observer

import (
	"context"
	"strings"

	"interviewcoach/pkg/config"
	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llm/middleware/metrics"
	"interviewcoach/pkg/llmerrors"
	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/policy"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/schema"
	"interviewcoach/pkg/score"
)

// Observer analyzes candidate answers one request at a time.
type Observer struct {
	inbox   <-chan proto.AnalyzeRequest
	client  llm.Client
	policy  *policy.Policy
	prompts config.Prompts

	defaultTopic string
	recorder     metrics.Recorder
	logger       *logx.Logger
}

// New creates an Observer. The client must already carry the Observer's
// resilience chain (timeout, retry, cooldown). A nil recorder disables
// fallback accounting.
func New(
	inbox <-chan proto.AnalyzeRequest,
	client llm.Client,
	pol *policy.Policy,
	prompts config.Prompts,
	defaultTopic string,
	recorder metrics.Recorder,
) *Observer {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Observer{
		inbox:        inbox,
		client:       client,
		policy:       pol,
		prompts:      prompts,
		defaultTopic: defaultTopic,
		recorder:     recorder,
		logger:       logx.NewLogger("observer"),
	}
}

// Run consumes analyze requests until the context is canceled or the inbox
// closes. Each verdict is sent to the request's one-shot reply channel.
func (o *Observer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-o.inbox:
			if !ok {
				return
			}
			req.Reply <- o.Analyze(ctx, req)
		}
	}
}

// Analyze produces a verdict for one candidate answer.
func (o *Observer) Analyze(ctx context.Context, req proto.AnalyzeRequest) proto.ObserverVerdict {
	topic := req.Topic
	if topic == "" {
		topic = o.defaultTopic
	}

	heuristic := score.Answer(req.UserReply, req.LastQuestion)

	// Explicit termination phrasing skips the model entirely: the answer
	// is not scored, the interview just winds down.
	if o.policy.DetectStopIntent(req.UserReply) {
		return proto.ObserverVerdict{
			Action:           schema.ActionSame,
			Status:           schema.StatusConfirmed,
			StopIntent:       true,
			Topic:            topic,
			InternalThoughts: o.prompts.StopIntentThoughts,
		}
	}

	analysis, analysisErr := o.modelAnalysis(ctx, req.LastQuestion, req.UserReply)
	if analysis == nil {
		return o.degradedVerdict(req, topic, heuristic, analysisErr)
	}

	if analysis.StopIntent {
		return proto.ObserverVerdict{
			Action:           schema.ActionSame,
			Status:           schema.StatusConfirmed,
			StopIntent:       true,
			Topic:            topic,
			InternalThoughts: o.prompts.StopIntentThoughts,
		}
	}

	// Model scores win, heuristic sub-scores ride along regardless.
	merged := heuristic
	merged.Correctness = analysis.Scores.Correctness
	merged.ConfidenceEstimate = analysis.Scores.Confidence

	status := analysis.Status
	if analysis.Hallucination {
		status = schema.StatusHallucinationSuspect
	}

	var notes []string
	if analysis.Hallucination {
		notes = append(notes, config.Fill(o.prompts.HallucinationNote,
			map[string]string{"reason": analysis.HallucinationWhy}))
	}
	if analysis.OffTopic {
		note := o.prompts.OffTopicNote
		if analysis.OffTopicWhy != "" {
			note += " " + analysis.OffTopicWhy
		}
		notes = append(notes, note)
	}
	if analysis.Notes != "" {
		notes = append(notes, analysis.Notes)
	}

	suggested := analysis.SuggestedTopic
	if suggested != "" && suggested != topic {
		notes = append(notes, config.Fill(o.prompts.SuggestedTopicNote,
			map[string]string{"topic": suggested}))
	}

	return proto.ObserverVerdict{
		Action:           analysis.Action,
		Scores:           merged,
		Status:           status,
		CorrectAnswer:    analysis.CorrectAnswer,
		Hallucination:    analysis.Hallucination,
		OffTopic:         analysis.OffTopic,
		RoleReversal:     analysis.RoleReversal,
		Topic:            topic,
		SuggestedTopic:   suggested,
		InternalThoughts: o.prompts.InternalThoughtsPrefix + strings.Join(notes, " "),
	}
}

// modelAnalysis calls the model service and validates its output. A
// validation failure is never retried; only the transport layer inside the
// client chain retries.
func (o *Observer) modelAnalysis(ctx context.Context, question, answer string) (*schema.Analysis, error) {
	prompt := config.Fill(o.prompts.AnalysisTemplate, map[string]string{
		"question": question,
		"answer":   answer,
	})
	req := llm.NewRequest(o.prompts.AnalysisSystemPrompt, prompt, llm.TemperatureAnalytic)

	resp, err := o.client.Complete(ctx, req)
	if err != nil {
		o.logger.Warn("model analysis unavailable: %v", err)
		return nil, err
	}

	analysis, err := schema.ParseAnalysis(resp.Content)
	if err != nil {
		o.logger.Warn("model analysis rejected: %v", err)
		return nil, err
	}
	return analysis, nil
}

// degradedVerdict is built entirely from local heuristics when the model
// analysis is unusable.
func (o *Observer) degradedVerdict(req proto.AnalyzeRequest, topic string, heuristic score.Score, cause error) proto.ObserverVerdict {
	o.recorder.IncFallback("observer", llmerrors.TypeOf(cause).String())

	action := schema.ActionSame
	status := o.policy.StatusFromHeuristics(heuristic.Correctness)
	if llmerrors.Is(cause, llmerrors.ErrorTypeParse) || llmerrors.Is(cause, llmerrors.ErrorTypeSchema) {
		// A malformed analysis says nothing about the answer itself.
		status = schema.StatusUnknown
	}

	thoughts := o.prompts.InternalThoughtsPrefix + config.Fill(o.prompts.AnalysisFallbackNote,
		map[string]string{"error": llmerrors.TypeOf(cause).String()})

	// The difficulty itself stays at "same" on a degraded verdict; the
	// score-derived steering only informs the internal notes.
	heurAction, reason := o.policy.ActionFromScore(heuristic.Correctness, heuristic.ConfidenceEstimate)
	if reason != "" {
		thoughts += " " + config.Fill(o.prompts.HeuristicActionNote, map[string]string{
			"action": string(heurAction),
			"reason": reason,
		})
	}

	return proto.ObserverVerdict{
		Action: action,
		Scores: heuristic,
		Status: status,
		// The model could not judge role reversal, so a conservative
		// local pre-filter fills in.
		RoleReversal:     o.policy.DetectRoleReversal(req.UserReply),
		Topic:            topic,
		InternalThoughts: thoughts,
		Degraded:         true,
	}
}

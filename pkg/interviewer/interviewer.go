// Package interviewer implements the Interviewer agent: it owns question
// generation and turn sequencing, consumes Observer verdicts, and drives the
// per-session state machine.
//
// The candidate-facing contract is strict: every emitted question is
// non-empty and never repeats an earlier one, and the interview reaches
// AwaitingFinalize even when the model service is down for its whole
// duration.
package interviewer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"interviewcoach/pkg/config"
	"interviewcoach/pkg/contextmgr"
	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llm/middleware/metrics"
	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/policy"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/schema"
	"interviewcoach/pkg/session"
)

// State is the per-session interviewer state.
type State int

const (
	StateNotStarted State = iota
	StateAwaitingReply
	StateAwaitingFinalize
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateAwaitingFinalize:
		return "awaiting_finalize"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Interviewer sequences one interview.
type Interviewer struct {
	inbox       <-chan proto.InterviewerCommand
	observerOut chan<- proto.AnalyzeRequest
	events      chan<- proto.Event

	sess     *session.Session
	client   llm.Client
	policy   *policy.Policy
	prompts  config.Prompts
	cfg      config.InterviewerConfig
	windower *contextmgr.Windower
	recorder metrics.Recorder
	logger   *logx.Logger

	mu          sync.Mutex
	state       State
	rotationIdx int
}

// New creates an Interviewer. The client carries the Interviewer's own
// resilience chain (timeout and retry, no cooldown). A nil recorder
// disables fallback accounting.
func New(
	inbox <-chan proto.InterviewerCommand,
	observerOut chan<- proto.AnalyzeRequest,
	events chan<- proto.Event,
	sess *session.Session,
	client llm.Client,
	pol *policy.Policy,
	prompts config.Prompts,
	cfg config.InterviewerConfig,
	windower *contextmgr.Windower,
	recorder metrics.Recorder,
) *Interviewer {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Interviewer{
		inbox:       inbox,
		observerOut: observerOut,
		events:      events,
		sess:        sess,
		client:      client,
		policy:      pol,
		prompts:     prompts,
		cfg:         cfg,
		windower:    windower,
		recorder:    recorder,
		logger:      logx.NewLogger("interviewer"),
	}
}

// State returns the current state machine state.
func (iv *Interviewer) State() State {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.state
}

func (iv *Interviewer) setState(s State) {
	iv.mu.Lock()
	iv.state = s
	iv.mu.Unlock()
}

// Run consumes commands until the context is canceled or the inbox closes.
// At most one command is processed at a time, so turn ordering is strict by
// construction.
func (iv *Interviewer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-iv.inbox:
			if !ok {
				return
			}
			switch {
			case cmd.Start:
				iv.Start()
			case cmd.UserReply != "":
				iv.HandleReply(ctx, cmd.UserReply)
			}
		}
	}
}

// Start emits the templated first question, built purely from candidate
// metadata. No model call, so the interview can begin with the model
// service down.
func (iv *Interviewer) Start() {
	if iv.State() != StateNotStarted {
		iv.logger.Error("start rejected in state %s", iv.State())
		return
	}

	question := config.Fill(iv.prompts.InitialQuestionTemplate, map[string]string{
		"position": iv.sess.Meta.Position,
		"name":     iv.sess.Meta.Name,
	})
	iv.setState(StateAwaitingReply)
	iv.emitQuestion(question)
}

// HandleReply processes one candidate answer: Observer analysis, stop and
// role-reversal handling, turn logging, next question.
func (iv *Interviewer) HandleReply(ctx context.Context, userReply string) {
	if iv.State() != StateAwaitingReply {
		iv.logger.Error("reply rejected in state %s: %s", iv.State(), userReply)
		return
	}

	lastQuestion := iv.sess.LastQuestion()
	iv.sess.RecordAnswer(userReply)

	verdict := iv.askObserver(ctx, lastQuestion, userReply)

	// A degraded verdict may still sit on top of explicit termination
	// phrasing; the local pre-filter keeps the stop contract intact even
	// when the Observer itself timed out.
	if verdict.Degraded && iv.policy.DetectStopIntent(userReply) {
		verdict.StopIntent = true
		verdict.InternalThoughts = iv.prompts.StopIntentThoughts
	}

	if verdict.StopIntent {
		iv.emitInternal(verdict.InternalThoughts)
		iv.setState(StateAwaitingFinalize)
		iv.emit(proto.EventStop, "")
		return
	}

	if verdict.RoleReversal {
		// The candidate asked a question of their own. Answer it without
		// recording the exchange as a scored turn, then continue.
		iv.emit(proto.EventInterviewer, iv.answerRoleReversal(ctx, userReply))
	}

	iv.emitInternal(fmt.Sprintf("%s (action=%s, correctness=%.2f, confidence=%.2f)",
		verdict.InternalThoughts, verdict.Action,
		verdict.Scores.Correctness, verdict.Scores.ConfidenceEstimate))

	topic := verdict.SuggestedTopic
	if topic == "" {
		topic = verdict.Topic
	}
	if topic == "" {
		topic = iv.cfg.DefaultTopic
	}

	result, ok := iv.generateQuestion(ctx, verdict.Action, topic)

	thoughts := verdict.InternalThoughts
	if result.Reasoning() != "" {
		iv.emitInternal(result.Reasoning())
		thoughts += " [Interviewer]: " + result.Reasoning()
	} else if ok {
		thoughts += " " + config.Fill(iv.prompts.InterviewerInternal, map[string]string{
			"action": string(verdict.Action),
			"topic":  topic,
		})
	}

	iv.sess.LogTurn(lastQuestion, userReply, strings.TrimSpace(thoughts), verdict.Action, verdict.Scores)
	iv.recordObservation(verdict)

	if !ok {
		// Fallback rotation exhausted: there is nothing left to ask.
		iv.logger.Info("question rotation exhausted, ending interview")
		iv.setState(StateAwaitingFinalize)
		iv.emit(proto.EventStop, "")
		return
	}

	question := result.Question()
	if comment := strings.TrimSpace(result.Comment()); comment != "" {
		question = comment + "\n\n" + question
	}
	iv.emitQuestion(question)
}

// askObserver sends an analyze request and waits with a bounded timeout. On
// expiry it proceeds with a degraded default verdict so the interview never
// stalls on the Observer.
func (iv *Interviewer) askObserver(ctx context.Context, lastQuestion, userReply string) proto.ObserverVerdict {
	req := proto.NewAnalyzeRequest(lastQuestion, userReply, iv.topicFromQuestion(lastQuestion))

	iv.emitInternal(iv.prompts.ObserverPendingNotice)

	select {
	case iv.observerOut <- req:
	case <-ctx.Done():
		return iv.timeoutVerdict(req.Topic)
	}

	timer := time.NewTimer(iv.cfg.ObserverTimeout())
	defer timer.Stop()
	select {
	case verdict := <-req.Reply:
		return verdict
	case <-timer.C:
		iv.logger.Warn("observer reply timed out after %s", iv.cfg.ObserverTimeout())
		return iv.timeoutVerdict(req.Topic)
	case <-ctx.Done():
		return iv.timeoutVerdict(req.Topic)
	}
}

func (iv *Interviewer) timeoutVerdict(topic string) proto.ObserverVerdict {
	return proto.ObserverVerdict{
		Action:           schema.ActionSame,
		Status:           schema.StatusUnknown,
		Topic:            topic,
		InternalThoughts: iv.prompts.ObserverTimeoutThoughts,
		Degraded:         true,
	}
}

// generateQuestion returns the next question. The second return is false
// only when the deterministic rotation is exhausted.
func (iv *Interviewer) generateQuestion(ctx context.Context, action schema.Action, topic string) (schema.QuestionResult, bool) {
	if !iv.cfg.UseModelQuestions {
		return iv.pickRotation()
	}

	for attempt := 1; attempt <= iv.cfg.MaxQuestionAttempts; attempt++ {
		prompt := config.Fill(iv.prompts.QuestionTemplate, map[string]string{
			"history":         iv.windower.RecentHistory(iv.sess.History()),
			"asked_questions": iv.windower.AskedQuestions(iv.sess.History()),
			"action":          string(action),
			"topic":           topic,
			"position":        iv.sess.Meta.Position,
			"grade":           iv.sess.Meta.Grade,
		})
		if attempt > 1 {
			prompt += "\n\n" + iv.prompts.RepeatAvoidanceNote
		}

		resp, err := iv.client.Complete(ctx, llm.NewRequest(iv.prompts.QuestionSystemPrompt, prompt, llm.TemperatureDefault))
		if err != nil {
			iv.logger.Warn("question generation attempt %d failed: %v", attempt, err)
			continue
		}
		candidate := strings.TrimSpace(resp.Content)
		if candidate == "" {
			continue
		}

		if draft, err := schema.ParseQuestion(candidate); err == nil {
			if !iv.sess.WasAsked(draft.Question) {
				return schema.StructuredQuestion(*draft), true
			}
			iv.logger.Debug("structured question duplicates an earlier one, retrying")
			continue
		}

		// Graceful degradation: accept raw text as the question verbatim.
		if !iv.sess.WasAsked(candidate) {
			return schema.PlainQuestion(candidate), true
		}
		iv.logger.Debug("plain question duplicates an earlier one, retrying")
	}

	iv.recorder.IncFallback("interviewer", "question_rotation")
	return iv.pickRotation()
}

// pickRotation returns the next fallback question not yet asked.
func (iv *Interviewer) pickRotation() (schema.QuestionResult, bool) {
	total := len(iv.cfg.BaseQuestions)
	for i := 0; i < total; i++ {
		question := iv.cfg.BaseQuestions[(iv.rotationIdx+i)%total]
		if iv.sess.WasAsked(question) {
			continue
		}
		iv.rotationIdx = (iv.rotationIdx + i + 1) % total
		return schema.PlainQuestion(question), true
	}
	return schema.QuestionResult{}, false
}

// answerRoleReversal produces a short reply to the candidate's
// counter-question, with a static fallback when the model fails.
func (iv *Interviewer) answerRoleReversal(ctx context.Context, userReply string) string {
	prompt := config.Fill(iv.prompts.RoleReversalTemplate, map[string]string{
		"user_question": userReply,
	})
	resp, err := iv.client.Complete(ctx, llm.NewRequest(iv.prompts.QuestionSystemPrompt, prompt, llm.TemperatureDefault))
	if err != nil {
		iv.logger.Warn("role reversal reply failed: %v", err)
		iv.recorder.IncFallback("interviewer", "role_reversal_reply")
		return iv.policy.RoleReversalReply()
	}
	if text := strings.TrimSpace(resp.Content); text != "" {
		return text
	}
	return iv.policy.RoleReversalReply()
}

// topicFromQuestion classifies a question by configured keywords.
func (iv *Interviewer) topicFromQuestion(question string) string {
	lower := strings.ToLower(question)
	for _, rule := range iv.cfg.TopicMap {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, keyword) {
				return rule.Name
			}
		}
	}
	return iv.cfg.DefaultTopic
}

// recordObservation folds a verdict into the session observation log.
func (iv *Interviewer) recordObservation(verdict proto.ObserverVerdict) {
	status := verdict.Status
	if verdict.Hallucination {
		status = schema.StatusHallucinationSuspect
	} else if verdict.Scores.Correctness < 0.4 && status != schema.StatusGap {
		status = schema.StatusGap
	}
	iv.sess.AddObservation(session.Observation{
		Topic:         verdict.Topic,
		Status:        status,
		Notes:         verdict.InternalThoughts,
		CorrectAnswer: verdict.CorrectAnswer,
		Scores:        verdict.Scores,
	})
}

func (iv *Interviewer) emitQuestion(question string) {
	iv.sess.AddHistory(question, "")
	iv.emit(proto.EventInterviewer, question)
}

func (iv *Interviewer) emitInternal(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	iv.emit(proto.EventInternal, text)
}

func (iv *Interviewer) emit(kind proto.EventKind, text string) {
	iv.events <- proto.NewEvent(iv.sess.ID, kind, text)
}

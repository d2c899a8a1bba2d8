// Package orchestrator wires the three interview agents together: inbound
// queues, the outbound event stream, the stop/finalize transition, and
// session persistence.
//
// Each agent runs as its own goroutine and communicates only through typed
// channels. The orchestrator waits on reply channels with timeouts longer
// than the agents' own internal ones, a second line of defense against a
// hang inside an agent.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"interviewcoach/pkg/config"
	"interviewcoach/pkg/contextmgr"
	"interviewcoach/pkg/eventlog"
	"interviewcoach/pkg/interviewer"
	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llm/llmimpl"
	"interviewcoach/pkg/llm/middleware/metrics"
	"interviewcoach/pkg/llm/resilience/cooldown"
	"interviewcoach/pkg/llm/resilience/retry"
	"interviewcoach/pkg/llm/resilience/timeout"
	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/manager"
	"interviewcoach/pkg/observer"
	"interviewcoach/pkg/persistence"
	"interviewcoach/pkg/policy"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/schema"
	"interviewcoach/pkg/session"
)

// finalizeGrace extends the Manager's own timeout for the orchestrator-side
// wait on its reply channel.
const finalizeGrace = 5 * time.Second

// Orchestrator runs one interview session.
type Orchestrator struct {
	cfg     config.Config
	prompts config.Prompts
	sess    *session.Session
	logger  *logx.Logger

	interviewerIn chan proto.InterviewerCommand
	observerIn    chan proto.AnalyzeRequest
	managerIn     chan proto.FinalizeRequest
	agentEvents   chan proto.Event
	out           chan proto.Event

	interviewer *interviewer.Interviewer
	observer    *observer.Observer
	manager     *manager.Manager

	store    *persistence.Store
	eventLog *eventlog.Writer
	recorder metrics.Recorder

	baseClient llm.Client

	finalizeOnce sync.Once
	wg           sync.WaitGroup
}

// Option customizes orchestrator construction.
type Option func(*Orchestrator)

// WithBaseClient injects a model client, bypassing the provider factory.
func WithBaseClient(client llm.Client) Option {
	return func(o *Orchestrator) { o.baseClient = client }
}

// WithStore enables SQLite persistence of the finished session.
func WithStore(store *persistence.Store) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithEventLog enables JSONL event logging.
func WithEventLog(w *eventlog.Writer) Option {
	return func(o *Orchestrator) { o.eventLog = w }
}

// WithMetrics installs a metrics recorder on every model client chain.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = recorder }
}

// New builds a fully wired orchestrator for one session.
func New(cfg config.Config, prompts config.Prompts, teamName string, meta session.Meta, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:           cfg,
		prompts:       prompts,
		logger:        logx.NewLogger("orchestrator"),
		interviewerIn: make(chan proto.InterviewerCommand, 8),
		observerIn:    make(chan proto.AnalyzeRequest, 1),
		managerIn:     make(chan proto.FinalizeRequest, 1),
		agentEvents:   make(chan proto.Event, 64),
		out:           make(chan proto.Event, 64),
		recorder:      metrics.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.baseClient == nil {
		client, err := buildProviderClient(cfg.Model)
		if err != nil {
			return nil, err
		}
		o.baseClient = client
	}

	o.sess = session.New(teamName, meta, cfg.Interviewer.DefaultTopic, feedbackDefaults(cfg.Feedback))
	pol := policy.New(policy.Config{
		ActionReasons: policy.ActionReasons{
			Increase: cfg.Policy.ActionReasonIncrease,
			Same:     cfg.Policy.ActionReasonSame,
			Decrease: cfg.Policy.ActionReasonDecrease,
		},
		RoleReversalReply: cfg.Policy.RoleReversalReply,
		StopPhrases:       cfg.Policy.StopPhrases,
	})

	// Per-agent resilience chains. The Observer gets its own cooldown
	// gate; the Interviewer retries at the question-attempt level and the
	// Manager is single-shot, so neither carries retry middleware.
	gate := cooldown.New(cooldown.Config{Window: cfg.Observer.Cooldown()})
	observerClient := llm.Chain(o.baseClient,
		metrics.Middleware(o.recorder, "observer"),
		cooldown.Middleware(gate),
		retry.Middleware(retry.NewPolicy(retry.Config{
			MaxAttempts:   cfg.Observer.MaxRetries + 1,
			InitialDelay:  time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2.0,
		}, nil)),
		timeout.Middleware(cfg.Observer.ModelTimeout()),
	)
	interviewerClient := llm.Chain(o.baseClient,
		metrics.Middleware(o.recorder, "interviewer"),
		timeout.Middleware(cfg.Interviewer.ModelTimeout()),
	)
	managerClient := llm.Chain(o.baseClient,
		metrics.Middleware(o.recorder, "manager"),
		timeout.Middleware(cfg.Manager.ModelTimeout()),
	)

	counter, err := contextmgr.NewTokenCounter()
	if err != nil {
		o.logger.Warn("tokenizer unavailable, using character estimates: %v", err)
	}
	windower := contextmgr.NewWindower(counter, cfg.Interviewer.MaxHistoryTurns, 2048)

	o.observer = observer.New(o.observerIn, observerClient, pol, prompts, cfg.Interviewer.DefaultTopic, o.recorder)
	o.interviewer = interviewer.New(o.interviewerIn, o.observerIn, o.agentEvents,
		o.sess, interviewerClient, pol, prompts, cfg.Interviewer, windower, o.recorder)
	o.manager = manager.New(o.managerIn, managerClient, o.sess, prompts, cfg.Manager, o.recorder)

	return o, nil
}

// buildProviderClient resolves the API key and constructs the provider
// client.
func buildProviderClient(mc config.ModelConfig) (llm.Client, error) {
	apiKey := ""
	if env := config.APIKeyEnvName(mc.Provider); env != "" {
		key, err := config.GetSecret(env)
		if err != nil {
			return nil, fmt.Errorf("no API key for provider %s: %w", mc.Provider, err)
		}
		apiKey = key
	}
	return llmimpl.NewClient(llm.Config{
		Provider:  mc.Provider,
		APIKey:    apiKey,
		ModelName: mc.Model,
		BaseURL:   mc.BaseURL,
	})
}

func feedbackDefaults(fc config.FeedbackConfig) session.FeedbackDefaults {
	return session.FeedbackDefaults{
		RecommendationNoGaps:    fc.RecommendationNoGaps,
		RecommendationHasGaps:   fc.RecommendationHasGaps,
		ConfidenceNoGaps:        fc.ConfidenceNoGaps,
		ConfidenceHasGaps:       fc.ConfidenceHasGaps,
		Clarity:                 fc.SoftSkillClarity,
		HonestyNoGaps:           fc.SoftSkillHonestyNoGaps,
		HonestyWithGaps:         fc.SoftSkillHonestyGaps,
		Engagement:              fc.SoftSkillEngagement,
		RoadmapDefaultResources: fc.RoadmapDefaultResources,
	}
}

// Session exposes the session for hosts and tests.
func (o *Orchestrator) Session() *session.Session { return o.sess }

// Events is the outbound event stream. It closes after the final report
// has been emitted.
func (o *Orchestrator) Events() <-chan proto.Event { return o.out }

// Run starts the agents and the event pump. It returns immediately; the
// interview is driven by OnStart/OnCandidateReply and finishes after the
// final_report event.
func (o *Orchestrator) Run(ctx context.Context) {
	o.wg.Add(3)
	go func() { defer o.wg.Done(); o.interviewer.Run(ctx) }()
	go func() { defer o.wg.Done(); o.observer.Run(ctx) }()
	go func() { defer o.wg.Done(); o.manager.Run(ctx) }()

	go o.pumpEvents(ctx)
}

// OnStart begins the interview.
func (o *Orchestrator) OnStart() {
	o.interviewerIn <- proto.InterviewerCommand{ID: proto.NewID(), Start: true}
}

// OnCandidateReply forwards a candidate answer, fire-and-forget.
func (o *Orchestrator) OnCandidateReply(text string) {
	o.agentEvents <- proto.NewEvent(o.sess.ID, proto.EventUser, text)
	o.interviewerIn <- proto.InterviewerCommand{ID: proto.NewID(), UserReply: text}
}

// OnStopRequested ends the interview from the host side (closed tab,
// timeout). The finalize path is the same as for candidate stop-intent.
func (o *Orchestrator) OnStopRequested() {
	o.agentEvents <- proto.NewEvent(o.sess.ID, proto.EventStop, "")
}

// pumpEvents forwards agent events to the host, logs them, and drives the
// stop → finalize → final_report transition.
func (o *Orchestrator) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(o.out)
			return
		case ev := <-o.agentEvents:
			o.deliver(ev)
			if ev.Kind == proto.EventStop {
				o.finalizeOnce.Do(func() { o.finalize(ctx) })
				close(o.out)
				return
			}
		}
	}
}

// finalize obtains the final report, exactly once, and persists the
// session. The report event is emitted last so hosts can stop listening
// after it.
func (o *Orchestrator) finalize(ctx context.Context) {
	o.deliver(proto.NewEvent(o.sess.ID, proto.EventStatus, "Генерация финального отчёта..."))

	report := o.requestReport(ctx)
	if err := o.sess.SetFinalFeedback(report); err != nil {
		o.logger.Error("failed to set final feedback: %v", err)
	}

	o.persist()

	o.deliver(proto.NewEvent(o.sess.ID, proto.EventCompleted, ""))
	reportEvent := proto.NewEvent(o.sess.ID, proto.EventFinalReport, "")
	reportEvent.Report = report
	o.deliver(reportEvent)
}

// requestReport asks the Manager with a bounded wait longer than the
// Manager's internal timeout; expiry falls back to the deterministic
// report.
func (o *Orchestrator) requestReport(ctx context.Context) *schema.FinalReport {
	req := proto.NewFinalizeRequest()

	select {
	case o.managerIn <- req:
	case <-ctx.Done():
		return o.sess.BuildFallbackReport()
	}

	timer := time.NewTimer(o.cfg.Manager.ModelTimeout() + finalizeGrace)
	defer timer.Stop()
	select {
	case report := <-req.Reply:
		return report
	case <-timer.C:
		o.logger.Warn("manager reply timed out, using fallback report")
		return o.sess.BuildFallbackReport()
	case <-ctx.Done():
		return o.sess.BuildFallbackReport()
	}
}

// persist writes the finished session to SQLite and the JSON export.
func (o *Orchestrator) persist() {
	doc := o.sess.ToDocument()
	if o.store != nil {
		if err := o.store.SaveSession(doc); err != nil {
			o.logger.Error("failed to save session: %v", err)
		}
	}
	if o.cfg.Storage.ExportDir != "" {
		path, err := persistence.ExportJSON(o.cfg.Storage.ExportDir, doc)
		if err != nil {
			o.logger.Error("failed to export session: %v", err)
		} else {
			o.logger.Info("session exported to %s", path)
		}
	}
}

// deliver forwards one event to the host stream and the JSONL log.
func (o *Orchestrator) deliver(ev proto.Event) {
	if o.eventLog != nil {
		if err := o.eventLog.WriteEvent(ev); err != nil {
			o.logger.Warn("failed to log event: %v", err)
		}
	}
	select {
	case o.out <- ev:
	default:
		// A host that stopped draining must not deadlock the agents.
		o.logger.Warn("event dropped, host not draining: %s", ev.Kind)
	}
}

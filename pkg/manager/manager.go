// Package manager implements the Manager agent: one finalize request per
// session, aggregating the full interview into a hiring verdict.
//
// The model gets a single bounded call with no retry. Any failure, parse
// error, or schema violation falls back to the deterministic report built
// from the session history alone, so finalize always yields a report.
package manager

import (
	"context"
	"fmt"
	"strings"

	"interviewcoach/pkg/config"
	"interviewcoach/pkg/contextmgr"
	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llm/middleware/metrics"
	"interviewcoach/pkg/llmerrors"
	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/schema"
	"interviewcoach/pkg/session"
)

// Manager produces the final report.
type Manager struct {
	inbox    <-chan proto.FinalizeRequest
	client   llm.Client
	sess     *session.Session
	prompts  config.Prompts
	cfg      config.ManagerConfig
	recorder metrics.Recorder
	logger   *logx.Logger
}

// New creates a Manager. The client carries a timeout middleware only; the
// Manager never retries. A nil recorder disables fallback accounting.
func New(
	inbox <-chan proto.FinalizeRequest,
	client llm.Client,
	sess *session.Session,
	prompts config.Prompts,
	cfg config.ManagerConfig,
	recorder metrics.Recorder,
) *Manager {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Manager{
		inbox:    inbox,
		client:   client,
		sess:     sess,
		prompts:  prompts,
		cfg:      cfg,
		recorder: recorder,
		logger:   logx.NewLogger("manager"),
	}
}

// Run consumes finalize requests until the context is canceled or the
// inbox closes.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-m.inbox:
			if !ok {
				return
			}
			req.Reply <- m.Finalize(ctx)
		}
	}
}

// Finalize aggregates the session into a FinalReport. Pure given the same
// session snapshot: the same history always yields the same fallback.
func (m *Manager) Finalize(ctx context.Context) *schema.FinalReport {
	windower := contextmgr.NewWindower(nil, m.cfg.MaxTurns, 0)
	stats := m.sess.ComputeStats()

	prompt := config.Fill(m.prompts.ReportTemplate, map[string]string{
		"position":     m.sess.Meta.Position,
		"grade":        m.sess.Meta.Grade,
		"experience":   m.sess.Meta.Experience,
		"turns":        windower.RecentTurns(m.sess.Turns()),
		"observations": m.formatObservations(),
		"stats":        formatStats(stats),
	})

	resp, err := m.client.Complete(ctx, llm.NewRequest(m.prompts.ReportSystemPrompt, prompt, llm.TemperatureAnalytic))
	if err != nil {
		m.logger.Warn("report generation failed, using fallback: %v", err)
		m.recorder.IncFallback("manager", llmerrors.TypeOf(err).String())
		return m.sess.BuildFallbackReport()
	}

	report, err := schema.ParseFinalReport(resp.Content)
	if err != nil {
		m.logger.Warn("report rejected, using fallback: %v", err)
		m.recorder.IncFallback("manager", llmerrors.TypeOf(err).String())
		return m.sess.BuildFallbackReport()
	}
	return report
}

// formatObservations renders the per-topic Observer status summary.
func (m *Manager) formatObservations() string {
	var lines []string
	for _, obs := range m.sess.Observations() {
		line := fmt.Sprintf("- %s | %s | correctness=%.2f, confidence=%.2f | %s",
			obs.Topic, obs.Status, obs.Scores.Correctness, obs.Scores.ConfidenceEstimate, obs.Notes)
		if obs.CorrectAnswer != "" {
			line += " | Правильный ответ: " + obs.CorrectAnswer
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "Нет данных."
	}
	return strings.Join(lines, "\n")
}

func formatStats(stats session.Stats) string {
	return fmt.Sprintf(
		"Статистика: Всего тем=%d, Подтверждено=%d, Пробелы=%d, Галлюцинации=%d, Средняя correctness=%.2f, Средняя confidence=%.2f",
		stats.Total, stats.Confirmed, stats.Gaps, stats.Hallucinations,
		stats.MeanCorrectness, stats.MeanConfidence)
}

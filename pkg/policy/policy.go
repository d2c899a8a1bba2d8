// Package policy holds the deterministic decision rules the agents apply
// without the model service: difficulty steering from scores, stop-intent
// and role-reversal pre-filters, and the static fallback replies.
package policy

import (
	"strings"

	"interviewcoach/pkg/schema"
)

// ActionReasons are the canned explanations attached to score-derived actions.
type ActionReasons struct {
	Increase string
	Same     string
	Decrease string
}

// Policy is the rule set shared by the Observer and Interviewer.
type Policy struct {
	reasons           ActionReasons
	roleReversalReply string
	stopPhrases       []string
}

// Config carries the configurable pieces of the rule set.
type Config struct {
	ActionReasons     ActionReasons
	RoleReversalReply string
	// StopPhrases are matched case-insensitively as substrings of the
	// candidate reply. Empty falls back to the defaults.
	StopPhrases []string
}

// DefaultStopPhrases are explicit termination phrasings. Admitting not
// knowing an answer is deliberately absent.
var DefaultStopPhrases = []string{
	"стоп",
	"хватит",
	"давай фидбэк",
	"завершить интервью",
	"stop the interview",
	"let's wrap up",
}

func New(cfg Config) *Policy {
	p := &Policy{
		reasons:           cfg.ActionReasons,
		roleReversalReply: cfg.RoleReversalReply,
		stopPhrases:       cfg.StopPhrases,
	}
	if len(p.stopPhrases) == 0 {
		p.stopPhrases = DefaultStopPhrases
	}
	if p.roleReversalReply == "" {
		p.roleReversalReply = "Хороший вопрос, но давайте вернёмся к интервью. Отвечу на него в конце."
	}
	return p
}

// ActionFromScore maps heuristic scores to a difficulty action. Used when
// the model analysis is unavailable.
func (p *Policy) ActionFromScore(correctness, confidence float64) (schema.Action, string) {
	if correctness > 0.8 && confidence > 0.7 {
		return schema.ActionIncrease, p.reasons.Increase
	}
	if correctness < 0.4 {
		return schema.ActionDecrease, p.reasons.Decrease
	}
	return schema.ActionSame, p.reasons.Same
}

// DetectStopIntent reports whether the reply contains explicit termination
// phrasing. This pre-filter short-circuits the model call entirely.
func (p *Policy) DetectStopIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range p.stopPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// DetectRoleReversal is a conservative pre-filter used only when the model
// analysis failed: the reply must be short and end with a question mark, or
// open with an interrogative aimed at the interviewer. Answers that merely
// contain a "?" somewhere are not flagged.
func (p *Policy) DetectRoleReversal(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if !strings.HasSuffix(trimmed, "?") {
		return false
	}
	lower := strings.ToLower(trimmed)
	interrogatives := []string{
		"что", "как", "почему", "зачем", "какой", "какие", "можешь", "расскажи",
		"what", "how", "why", "can you", "could you", "tell me",
	}
	for _, w := range interrogatives {
		if strings.HasPrefix(lower, w) {
			return true
		}
	}
	// A bare short question still counts; a long reply that happens to
	// end in "?" does not.
	return len([]rune(trimmed)) <= 60
}

// RoleReversalReply returns the static reply used when the model cannot
// answer the candidate's counter-question.
func (p *Policy) RoleReversalReply() string {
	return p.roleReversalReply
}

// StatusFromHeuristics derives an answer status without model analysis.
func (p *Policy) StatusFromHeuristics(correctness float64) schema.Status {
	if correctness < 0.4 {
		return schema.StatusGap
	}
	return schema.StatusConfirmed
}

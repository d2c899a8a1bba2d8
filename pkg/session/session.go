// Package session holds one interview's state: immutable candidate
// metadata, the append-only turn history, the Observer's observation log,
// and the final feedback, set exactly once at finalize.
//
// The Interviewer is the only writer of turns and history; the orchestrator
// sets the final feedback after the interview loop has stopped. There is no
// concurrent mutation by construction, so the type carries no locking.
package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"interviewcoach/pkg/schema"
	"interviewcoach/pkg/score"
)

// Meta is the candidate profile, immutable after session creation.
type Meta struct {
	Name       string `json:"name"`
	Position   string `json:"position"`
	Grade      string `json:"grade"`
	Experience string `json:"experience"`
}

// Turn is one question/answer exchange. Immutable once appended.
type Turn struct {
	TurnID           int           `json:"turn_id"`
	Timestamp        time.Time     `json:"timestamp"`
	AgentVisibleMsg  string        `json:"agent_visible_message"`
	UserMessage      string        `json:"user_message"`
	InternalThoughts string        `json:"internal_thoughts"`
	Action           schema.Action `json:"interviewer_action"`
	Scores           score.Score   `json:"scores"`
}

// HistoryItem is the question/answer view used for prompt building.
type HistoryItem struct {
	Timestamp time.Time `json:"timestamp"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
}

// Observation is one per-turn Observer outcome, feeding the Manager
// summaries and the deterministic fallback report.
type Observation struct {
	Topic         string        `json:"topic"`
	Status        schema.Status `json:"status"`
	Notes         string        `json:"notes"`
	CorrectAnswer string        `json:"correct_answer,omitempty"`
	Scores        score.Score   `json:"scores"`
}

// FeedbackDefaults parameterize the deterministic fallback report.
type FeedbackDefaults struct {
	RecommendationNoGaps    string
	RecommendationHasGaps   string
	ConfidenceNoGaps        int
	ConfidenceHasGaps       int
	Clarity                 string
	HonestyNoGaps           string
	HonestyWithGaps         string
	Engagement              string
	RoadmapDefaultResources []string
}

// Stats are aggregate observation statistics.
type Stats struct {
	Total           int
	Confirmed       int
	Gaps            int
	Hallucinations  int
	MeanCorrectness float64
	MeanConfidence  float64
}

// Session is one interview instance.
type Session struct {
	ID           string
	TeamName     string
	Meta         Meta
	DefaultTopic string

	turns         []Turn
	history       []HistoryItem
	observations  []Observation
	finalFeedback *schema.FinalReport

	defaults FeedbackDefaults
}

// New creates a session with a fresh ID.
func New(teamName string, meta Meta, defaultTopic string, defaults FeedbackDefaults) *Session {
	return &Session{
		ID:           uuid.New().String(),
		TeamName:     teamName,
		Meta:         meta,
		DefaultTopic: defaultTopic,
		defaults:     defaults,
	}
}

// LogTurn appends a completed turn.
func (s *Session) LogTurn(question, answer, internalThoughts string, action schema.Action, scores score.Score) {
	s.turns = append(s.turns, Turn{
		TurnID:           len(s.turns) + 1,
		Timestamp:        time.Now().UTC(),
		AgentVisibleMsg:  question,
		UserMessage:      answer,
		InternalThoughts: internalThoughts,
		Action:           action,
		Scores:           scores,
	})
}

// AddHistory appends a question/answer pair. The answer may be empty when a
// question was just emitted and not yet answered.
func (s *Session) AddHistory(question, answer string) {
	s.history = append(s.history, HistoryItem{
		Timestamp: time.Now().UTC(),
		Question:  question,
		Answer:    answer,
	})
}

// AddObservation appends an Observer outcome.
func (s *Session) AddObservation(obs Observation) {
	if obs.Topic == "" {
		obs.Topic = s.DefaultTopic
	}
	s.observations = append(s.observations, obs)
}

// Turns returns the turn history. Callers must not mutate the result.
func (s *Session) Turns() []Turn { return s.turns }

// History returns the question/answer history. Callers must not mutate it.
func (s *Session) History() []HistoryItem { return s.history }

// Observations returns the observation log. Callers must not mutate it.
func (s *Session) Observations() []Observation { return s.observations }

// RecordAnswer fills in the answer of the most recent history item, which
// is appended with an empty answer when the question is emitted.
func (s *Session) RecordAnswer(answer string) {
	if len(s.history) == 0 {
		return
	}
	last := &s.history[len(s.history)-1]
	if last.Answer == "" {
		last.Answer = answer
	}
}

// LastQuestion returns the most recently asked question, empty before the
// first one.
func (s *Session) LastQuestion() string {
	if len(s.history) == 0 {
		return ""
	}
	return s.history[len(s.history)-1].Question
}

// WasAsked reports whether a question was already asked, by case-insensitive
// whitespace-trimmed exact match.
func (s *Session) WasAsked(question string) bool {
	normalized := normalizeQuestion(question)
	if normalized == "" {
		return false
	}
	for _, item := range s.history {
		if normalizeQuestion(item.Question) == normalized {
			return true
		}
	}
	return false
}

func normalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// SetFinalFeedback installs the final report. It may be set exactly once.
func (s *Session) SetFinalFeedback(report *schema.FinalReport) error {
	if s.finalFeedback != nil {
		return fmt.Errorf("final feedback already set for session %s", s.ID)
	}
	s.finalFeedback = report
	return nil
}

// FinalFeedback returns the installed report, nil before finalize.
func (s *Session) FinalFeedback() *schema.FinalReport { return s.finalFeedback }

// ComputeStats aggregates the observation log.
func (s *Session) ComputeStats() Stats {
	stats := Stats{Total: len(s.observations)}
	for _, obs := range s.observations {
		switch obs.Status {
		case schema.StatusConfirmed:
			stats.Confirmed++
		case schema.StatusGap:
			stats.Gaps++
		case schema.StatusHallucinationSuspect:
			stats.Hallucinations++
		}
		stats.MeanCorrectness += obs.Scores.Correctness
		stats.MeanConfidence += obs.Scores.ConfidenceEstimate
	}
	if stats.Total > 0 {
		stats.MeanCorrectness /= float64(stats.Total)
		stats.MeanConfidence /= float64(stats.Total)
	}
	return stats
}

// BuildFallbackReport produces the deterministic final report from the
// observation log alone. It needs no model service and is always computable,
// including for an empty history.
func (s *Session) BuildFallbackReport() *schema.FinalReport {
	topics := make([]schema.TopicReview, 0, len(s.observations))
	confirmedSet := map[string]bool{}
	gapSet := map[string]bool{}

	for _, obs := range s.observations {
		topics = append(topics, schema.TopicReview{
			Topic:         obs.Topic,
			Status:        obs.Status,
			Notes:         obs.Notes,
			CorrectAnswer: obs.CorrectAnswer,
		})
		switch obs.Status {
		case schema.StatusConfirmed:
			confirmedSet[obs.Topic] = true
		case schema.StatusGap, schema.StatusHallucinationSuspect:
			gapSet[obs.Topic] = true
		}
	}

	confirmed := sortedKeys(confirmedSet)
	gaps := sortedKeys(gapSet)

	recommendation := s.defaults.RecommendationNoGaps
	confidence := s.defaults.ConfidenceNoGaps
	honesty := s.defaults.HonestyNoGaps
	if len(gaps) > 0 {
		recommendation = s.defaults.RecommendationHasGaps
		confidence = s.defaults.ConfidenceHasGaps
		honesty = s.defaults.HonestyWithGaps
	}

	grade := s.Meta.Grade
	if grade == "" {
		grade = "Junior"
	}

	roadmap := make([]schema.RoadmapItem, 0, len(gaps))
	for _, gap := range gaps {
		roadmap = append(roadmap, schema.RoadmapItem{
			Topic:     gap,
			Resources: append([]string(nil), s.defaults.RoadmapDefaultResources...),
		})
	}

	return &schema.FinalReport{
		Verdict: schema.Verdict{
			Grade:           grade,
			Recommendation:  recommendation,
			ConfidenceScore: confidence,
		},
		TechnicalReview: schema.TechnicalReview{
			Topics:          topics,
			ConfirmedSkills: confirmed,
			KnowledgeGaps:   gaps,
		},
		SoftSkills: schema.SoftSkills{
			Clarity:    s.defaults.Clarity,
			Honesty:    honesty,
			Engagement: s.defaults.Engagement,
		},
		PersonalRoadmap: roadmap,
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document is the serialized session written at session end.
type Document struct {
	TeamName      string              `json:"team_name"`
	SessionID     string              `json:"session_id"`
	Meta          Meta                `json:"meta"`
	Turns         []Turn              `json:"turns"`
	FinalFeedback *schema.FinalReport `json:"final_feedback"`
}

// ToDocument snapshots the session for persistence. A missing final
// feedback is replaced by the deterministic fallback so the document is
// always complete.
func (s *Session) ToDocument() Document {
	feedback := s.finalFeedback
	if feedback == nil {
		feedback = s.BuildFallbackReport()
	}
	turns := s.turns
	if turns == nil {
		turns = []Turn{}
	}
	return Document{
		TeamName:      s.TeamName,
		SessionID:     s.ID,
		Meta:          s.Meta,
		Turns:         turns,
		FinalFeedback: feedback,
	}
}

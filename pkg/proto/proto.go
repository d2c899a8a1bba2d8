// Package proto defines the typed messages exchanged between the interview
// agents and the events surfaced to the host.
//
// Request/response exchanges use an ephemeral reply channel created by the
// caller and carried inside the request message. The responder sends exactly
// one value and the caller is the only reader, so overlapping requests can
// never cross-talk. A bounded wait on the reply channel is the caller's
// responsibility.
package proto

import (
	"time"

	"github.com/google/uuid"

	"interviewcoach/pkg/schema"
	"interviewcoach/pkg/score"
)

// NewID returns a unique message or session identifier.
func NewID() string {
	return uuid.New().String()
}

// InterviewerCommand is the Interviewer's inbound message. Exactly one of
// Start or UserReply is meaningful per message.
type InterviewerCommand struct {
	ID    string
	Start bool
	// UserReply carries the candidate's answer when Start is false.
	UserReply string
}

// ObserverVerdict is the Observer's reply: analysis of one candidate answer.
// It is consumed immediately by the Interviewer and not retained beyond the
// turn it produced.
type ObserverVerdict struct {
	Action           schema.Action
	Scores           score.Score
	Status           schema.Status
	CorrectAnswer    string
	Hallucination    bool
	OffTopic         bool
	StopIntent       bool
	RoleReversal     bool
	Topic            string
	SuggestedTopic   string
	InternalThoughts string
	// Degraded marks a verdict built from heuristics alone, without a
	// usable model analysis.
	Degraded bool
}

// AnalyzeRequest asks the Observer to analyze one candidate answer.
type AnalyzeRequest struct {
	ID           string
	LastQuestion string
	UserReply    string
	Topic        string
	Reply        chan ObserverVerdict
}

// NewAnalyzeRequest builds an analyze request with a one-shot reply channel.
func NewAnalyzeRequest(lastQuestion, userReply, topic string) AnalyzeRequest {
	return AnalyzeRequest{
		ID:           NewID(),
		LastQuestion: lastQuestion,
		UserReply:    userReply,
		Topic:        topic,
		Reply:        make(chan ObserverVerdict, 1),
	}
}

// FinalizeRequest asks the Manager for the final report.
type FinalizeRequest struct {
	ID    string
	Reply chan *schema.FinalReport
}

// NewFinalizeRequest builds a finalize request with a one-shot reply channel.
func NewFinalizeRequest() FinalizeRequest {
	return FinalizeRequest{
		ID:    NewID(),
		Reply: make(chan *schema.FinalReport, 1),
	}
}

// EventKind classifies outbound events consumed by the host transport.
type EventKind string

const (
	// EventStatus is a host-facing progress notice.
	EventStatus EventKind = "status"
	// EventInternal carries agent reasoning, never shown to the candidate.
	EventInternal EventKind = "internal"
	// EventInterviewer is a candidate-visible interviewer message.
	EventInterviewer EventKind = "interviewer"
	// EventUser echoes the candidate's own message into the transcript.
	EventUser EventKind = "user"
	// EventStop signals the candidate asked to finish.
	EventStop EventKind = "stop"
	// EventCompleted signals the interview loop is over.
	EventCompleted EventKind = "completed"
	// EventFinalReport delivers the report. Emitted exactly once per
	// session, always after stop or completed.
	EventFinalReport EventKind = "final_report"
	// EventError reports a transport-level failure.
	EventError EventKind = "error"
)

// Event is one entry of the outbound event stream.
type Event struct {
	ID        string              `json:"id"`
	SessionID string              `json:"session_id"`
	Kind      EventKind           `json:"kind"`
	Text      string              `json:"text,omitempty"`
	Report    *schema.FinalReport `json:"report,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewEvent builds a timestamped event.
func NewEvent(sessionID string, kind EventKind, text string) Event {
	return Event{
		ID:        NewID(),
		SessionID: sessionID,
		Kind:      kind,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

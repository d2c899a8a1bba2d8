// Package schema defines the structured contracts the model service must
// satisfy, and validates its free-text output against them.
package schema

// Action is the Observer's difficulty steering for the next question.
type Action string

const (
	ActionIncrease Action = "increase"
	ActionSame     Action = "same"
	ActionDecrease Action = "decrease"
)

// IsValid reports whether the action is one of the allowed values.
func (a Action) IsValid() bool {
	return a == ActionIncrease || a == ActionSame || a == ActionDecrease
}

// Status describes how the Observer classified a candidate's answer.
type Status string

const (
	StatusConfirmed            Status = "confirmed"
	StatusGap                  Status = "gap"
	StatusHallucinationSuspect Status = "hallucination_suspect"
	// StatusUnknown marks a verdict produced without usable model analysis.
	StatusUnknown Status = "unknown"
)

// Scores carries the model's judgment of one answer.
type Scores struct {
	Correctness float64 `json:"correctness"`
	Confidence  float64 `json:"confidence"`
}

// Analysis is the Observer's structured verdict contract.
type Analysis struct {
	Action           Action `json:"action"`
	Scores           Scores `json:"scores"`
	Notes            string `json:"notes"`
	Status           Status `json:"status"`
	CorrectAnswer    string `json:"correct_answer"`
	Hallucination    bool   `json:"hallucination"`
	HallucinationWhy string `json:"hallucination_reason"`
	OffTopic         bool   `json:"off_topic"`
	OffTopicWhy      string `json:"off_topic_reason"`
	StopIntent       bool   `json:"stop_intent"`
	StopIntentWhy    string `json:"stop_intent_reason"`
	RoleReversal     bool   `json:"role_reversal"`
	RoleReversalWhy  string `json:"role_reversal_reason"`
	SuggestedTopic   string `json:"suggested_topic"`
}

// QuestionDraft is the Interviewer's structured question contract.
type QuestionDraft struct {
	Question  string `json:"question"`
	Reasoning string `json:"reasoning"`
	// Comment optionally precedes the question: praise after a strong
	// answer, a hint after a weak one.
	Comment string `json:"comment"`
}

// QuestionResult is the tagged variant produced by question generation: the
// model either returned the structured draft or plain text accepted
// verbatim. Both variants answer Question().
type QuestionResult struct {
	draft *QuestionDraft
	plain string
}

// StructuredQuestion wraps a validated draft.
func StructuredQuestion(draft QuestionDraft) QuestionResult {
	return QuestionResult{draft: &draft}
}

// PlainQuestion wraps raw text accepted as the question verbatim.
func PlainQuestion(text string) QuestionResult {
	return QuestionResult{plain: text}
}

// Question returns the question text for either variant.
func (q QuestionResult) Question() string {
	if q.draft != nil {
		return q.draft.Question
	}
	return q.plain
}

// Reasoning returns internal reasoning, empty for the plain variant.
func (q QuestionResult) Reasoning() string {
	if q.draft != nil {
		return q.draft.Reasoning
	}
	return ""
}

// Comment returns the optional candidate-visible comment, empty for plain.
func (q QuestionResult) Comment() string {
	if q.draft != nil {
		return q.draft.Comment
	}
	return ""
}

// IsStructured reports which variant this is.
func (q QuestionResult) IsStructured() bool {
	return q.draft != nil
}

// Recommendation values for the final verdict.
const (
	RecommendationHire       = "Hire"
	RecommendationNoHire     = "No Hire"
	RecommendationStrongHire = "Strong Hire"
)

// Verdict is the Manager's hiring decision.
type Verdict struct {
	Grade           string `json:"grade"`
	Recommendation  string `json:"recommendation"`
	ConfidenceScore int    `json:"confidence_score"`
}

// TopicReview summarizes one topic covered in the interview.
type TopicReview struct {
	Topic         string `json:"topic"`
	Status        Status `json:"status"`
	Notes         string `json:"notes,omitempty"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// TechnicalReview aggregates topic outcomes.
type TechnicalReview struct {
	Topics          []TopicReview `json:"topics"`
	ConfirmedSkills []string      `json:"confirmed_skills"`
	KnowledgeGaps   []string      `json:"knowledge_gaps"`
}

// SoftSkills is the Manager's assessment of communication quality.
type SoftSkills struct {
	Clarity    string `json:"clarity"`
	Honesty    string `json:"honesty"`
	Engagement string `json:"engagement"`
}

// RoadmapItem is one study recommendation for the candidate.
type RoadmapItem struct {
	Topic     string   `json:"topic"`
	Resources []string `json:"resources"`
}

// FinalReport is the Manager's structured report contract.
type FinalReport struct {
	Verdict         Verdict         `json:"verdict"`
	TechnicalReview TechnicalReview `json:"technical_review"`
	SoftSkills      SoftSkills      `json:"soft_skills"`
	PersonalRoadmap []RoadmapItem   `json:"personal_roadmap"`
}

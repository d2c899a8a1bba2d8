package schema

import (
	"encoding/json"
	"strings"

	"interviewcoach/pkg/llmerrors"
)

// StripFences removes a markdown code fence wrapping and isolates the
// outermost JSON object. Model services routinely wrap structured output in
// ```json fences despite instructions not to.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.Trim(text, "`")
		text = strings.TrimSpace(text)
		if rest, ok := strings.CutPrefix(text, "json"); ok {
			text = strings.TrimSpace(rest)
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// parseObject strips fences and unmarshals into dst, classifying failures
// as parse errors.
func parseObject(raw string, dst any) error {
	text := StripFences(raw)
	if text == "" {
		return llmerrors.New(llmerrors.ErrorTypeParse, "no JSON object found in model output")
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return llmerrors.Wrap(llmerrors.ErrorTypeParse, err, "model output is not valid JSON")
	}
	return nil
}

// ParseAnalysis validates model output against the Observer analysis
// contract. Either the whole value is valid or the caller must fall back;
// there is no partial acceptance.
func ParseAnalysis(raw string) (*Analysis, error) {
	var a Analysis
	if err := parseObject(raw, &a); err != nil {
		return nil, err
	}

	if !a.Action.IsValid() {
		return nil, llmerrors.NewSchemaError("action",
			"must be one of increase, same, decrease; got "+string(a.Action))
	}
	if a.Scores.Correctness < 0 || a.Scores.Correctness > 1 {
		return nil, llmerrors.NewSchemaError("scores.correctness", "value outside [0,1]")
	}
	if a.Scores.Confidence < 0 || a.Scores.Confidence > 1 {
		return nil, llmerrors.NewSchemaError("scores.confidence", "value outside [0,1]")
	}

	// Unknown status degrades to confirmed rather than rejecting the whole
	// verdict; the flags carry the useful signal.
	if a.Status != StatusConfirmed && a.Status != StatusGap && a.Status != StatusHallucinationSuspect {
		a.Status = StatusConfirmed
	}
	a.SuggestedTopic = strings.TrimSpace(a.SuggestedTopic)

	return &a, nil
}

// ParseQuestion validates model output against the structured question
// contract. Callers degrade to the plain-text variant when this fails.
func ParseQuestion(raw string) (*QuestionDraft, error) {
	var q QuestionDraft
	if err := parseObject(raw, &q); err != nil {
		return nil, err
	}

	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return nil, llmerrors.NewSchemaError("question", "required field is empty")
	}
	return &q, nil
}

// knownRecommendations are the allowed verdict recommendations.
//
//nolint:gochecknoglobals // enum membership table
var knownRecommendations = map[string]bool{
	RecommendationHire:       true,
	RecommendationNoHire:     true,
	RecommendationStrongHire: true,
}

// ParseFinalReport validates model output against the final report contract.
func ParseFinalReport(raw string) (*FinalReport, error) {
	var r FinalReport
	if err := parseObject(raw, &r); err != nil {
		return nil, err
	}

	if r.Verdict.Grade == "" {
		return nil, llmerrors.NewSchemaError("verdict.grade", "required field is empty")
	}
	if !knownRecommendations[r.Verdict.Recommendation] {
		return nil, llmerrors.NewSchemaError("verdict.recommendation",
			"must be one of Hire, No Hire, Strong Hire; got "+r.Verdict.Recommendation)
	}
	if r.Verdict.ConfidenceScore < 0 || r.Verdict.ConfidenceScore > 100 {
		return nil, llmerrors.NewSchemaError("verdict.confidence_score", "value outside [0,100]")
	}

	// Normalize nil slices so consumers and the JSON export see empty lists.
	if r.TechnicalReview.Topics == nil {
		r.TechnicalReview.Topics = []TopicReview{}
	}
	if r.TechnicalReview.ConfirmedSkills == nil {
		r.TechnicalReview.ConfirmedSkills = []string{}
	}
	if r.TechnicalReview.KnowledgeGaps == nil {
		r.TechnicalReview.KnowledgeGaps = []string{}
	}
	if r.PersonalRoadmap == nil {
		r.PersonalRoadmap = []RoadmapItem{}
	}

	return &r, nil
}

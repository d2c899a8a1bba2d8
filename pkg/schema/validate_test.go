package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewcoach/pkg/llmerrors"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around object", "Here you go:\n{\"a\":1}\nHope that helps!", `{"a":1}`},
		{"no object", "sorry, I cannot help with that", ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripFences(tc.in))
		})
	}
}

func TestParseAnalysisValid(t *testing.T) {
	raw := "```json\n" + `{
		"action": "increase",
		"scores": {"correctness": 0.9, "confidence": 0.8},
		"notes": "solid answer",
		"status": "confirmed",
		"stop_intent": false,
		"suggested_topic": "  indexes  "
	}` + "\n```"

	a, err := ParseAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, ActionIncrease, a.Action)
	assert.InDelta(t, 0.9, a.Scores.Correctness, 1e-9)
	assert.Equal(t, StatusConfirmed, a.Status)
	assert.Equal(t, "indexes", a.SuggestedTopic, "suggested topic must be trimmed")
}

func TestParseAnalysisBadAction(t *testing.T) {
	_, err := ParseAnalysis(`{"action":"harder","scores":{"correctness":0.5,"confidence":0.5}}`)
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeSchema))
}

func TestParseAnalysisOutOfRangeNamesField(t *testing.T) {
	_, err := ParseAnalysis(`{"action":"increase","scores":{"correctness":1.4,"confidence":0.5}}`)
	require.Error(t, err)

	var serr *llmerrors.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, llmerrors.ErrorTypeSchema, serr.Type)
	assert.Equal(t, "scores.correctness", serr.Field)
}

func TestParseAnalysisUnknownStatusDegrades(t *testing.T) {
	a, err := ParseAnalysis(`{"action":"same","scores":{"correctness":0.5,"confidence":0.5},"status":"wild"}`)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, a.Status)
}

func TestParseAnalysisNotJSON(t *testing.T) {
	_, err := ParseAnalysis("The candidate did fine, I think.")
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeParse))
}

func TestParseQuestion(t *testing.T) {
	q, err := ParseQuestion(`{"question":"What is an index?","reasoning":"probe basics","comment":"Nice!"}`)
	require.NoError(t, err)
	assert.Equal(t, "What is an index?", q.Question)
	assert.Equal(t, "probe basics", q.Reasoning)
	assert.Equal(t, "Nice!", q.Comment)
}

func TestParseQuestionEmptyQuestion(t *testing.T) {
	_, err := ParseQuestion(`{"question":"  ","reasoning":"x"}`)
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeSchema))
}

func TestQuestionResultVariants(t *testing.T) {
	structured := StructuredQuestion(QuestionDraft{Question: "Q1", Reasoning: "R"})
	assert.True(t, structured.IsStructured())
	assert.Equal(t, "Q1", structured.Question())
	assert.Equal(t, "R", structured.Reasoning())

	plain := PlainQuestion("Q2")
	assert.False(t, plain.IsStructured())
	assert.Equal(t, "Q2", plain.Question())
	assert.Empty(t, plain.Reasoning())
}

func TestParseFinalReportValid(t *testing.T) {
	raw := `{
		"verdict": {"grade": "Junior", "recommendation": "Hire", "confidence_score": 75},
		"technical_review": {"topics": [], "confirmed_skills": ["SQL"], "knowledge_gaps": []},
		"soft_skills": {"clarity": "Good", "honesty": "Clear answers", "engagement": "High"},
		"personal_roadmap": []
	}`
	r, err := ParseFinalReport(raw)
	require.NoError(t, err)
	assert.Equal(t, "Junior", r.Verdict.Grade)
	assert.Equal(t, RecommendationHire, r.Verdict.Recommendation)
	assert.Equal(t, 75, r.Verdict.ConfidenceScore)
}

func TestParseFinalReportBadRecommendation(t *testing.T) {
	raw := `{"verdict": {"grade": "Junior", "recommendation": "Maybe", "confidence_score": 50}}`
	_, err := ParseFinalReport(raw)
	require.Error(t, err)

	var serr *llmerrors.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "verdict.recommendation", serr.Field)
}

func TestParseFinalReportConfidenceOutOfRange(t *testing.T) {
	raw := `{"verdict": {"grade": "Junior", "recommendation": "Hire", "confidence_score": 140}}`
	_, err := ParseFinalReport(raw)
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeSchema))
}

func TestParseFinalReportNormalizesSlices(t *testing.T) {
	raw := `{"verdict": {"grade": "Middle", "recommendation": "No Hire", "confidence_score": 40}}`
	r, err := ParseFinalReport(raw)
	require.NoError(t, err)
	assert.NotNil(t, r.TechnicalReview.Topics)
	assert.NotNil(t, r.TechnicalReview.ConfirmedSkills)
	assert.NotNil(t, r.TechnicalReview.KnowledgeGaps)
	assert.NotNil(t, r.PersonalRoadmap)
}

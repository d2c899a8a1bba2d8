package contextmgr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewcoach/pkg/session"
)

func TestCountTokens(t *testing.T) {
	tc, err := NewTokenCounter()
	require.NoError(t, err)

	n := tc.CountTokens("What is an index in a database?")
	assert.Greater(t, n, 0)
	assert.Less(t, n, 20)
}

func TestCountTokensNilCounterFallsBack(t *testing.T) {
	var tc *TokenCounter
	assert.Equal(t, 5, tc.CountTokens(strings.Repeat("a", 20)))
}

func TestRecentHistoryWindow(t *testing.T) {
	w := NewWindower(nil, 2, 0)
	items := []session.HistoryItem{
		{Question: "Q1", Answer: "A1"},
		{Question: "Q2", Answer: "A2"},
		{Question: "Q3", Answer: "A3"},
	}

	got := w.RecentHistory(items)
	assert.NotContains(t, got, "Q1")
	assert.Contains(t, got, "Q: Q2\nA: A2")
	assert.Contains(t, got, "Q: Q3")
}

func TestRecentHistoryEmpty(t *testing.T) {
	w := NewWindower(nil, 4, 0)
	assert.Equal(t, "Нет данных.", w.RecentHistory(nil))
}

func TestRecentHistoryTokenBudget(t *testing.T) {
	tc, err := NewTokenCounter()
	require.NoError(t, err)

	long := strings.Repeat("database index lookup ", 100)
	w := NewWindower(tc, 4, 50)
	items := []session.HistoryItem{
		{Question: "Old question", Answer: long},
		{Question: "New question", Answer: "short"},
	}

	got := w.RecentHistory(items)
	assert.NotContains(t, got, "Old question")
	assert.Contains(t, got, "New question")
}

func TestAskedQuestions(t *testing.T) {
	w := NewWindower(nil, 4, 0)
	items := []session.HistoryItem{
		{Question: "Q1"},
		{Question: "  "},
		{Question: "Q2"},
	}
	assert.Equal(t, "- Q1\n- Q2", w.AskedQuestions(items))
	assert.Equal(t, "Нет.", w.AskedQuestions(nil))
}

func TestRecentTurns(t *testing.T) {
	w := NewWindower(nil, 2, 0)
	turns := []session.Turn{
		{AgentVisibleMsg: "Q1", UserMessage: "A1"},
		{AgentVisibleMsg: "Q2", UserMessage: "A2"},
		{AgentVisibleMsg: "Q3", UserMessage: "A3"},
	}

	got := w.RecentTurns(turns)
	assert.NotContains(t, got, "Q1")
	assert.Contains(t, got, "Q: Q3\nA: A3")
}

package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswerImprovesWithDetail(t *testing.T) {
	short := Answer("Yes.", "What is a slice?")
	long := Answer(
		"A slice is a dynamically-sized view into an underlying array. For example, you can append items to it.",
		"What is a slice?",
	)

	assert.Greater(t, long.Correctness, short.Correctness)
	assert.True(t, long.UsesExamples)
	assert.False(t, short.UsesExamples)
}

func TestAnswerPenalizesAdmittedIgnorance(t *testing.T) {
	known := Answer("Goroutines are lightweight threads managed by the runtime scheduler.", "What is a goroutine?")
	unknown := Answer("Honestly I don't know anything about goroutines or the scheduler here.", "What is a goroutine?")

	assert.Greater(t, known.Correctness, unknown.Correctness)
}

func TestAnswerRussianReply(t *testing.T) {
	s := Answer("Например, индекс ускоряет поиск по столбцу, потому что хранит отсортированную структуру.", "Что такое индекс?")

	assert.True(t, s.UsesExamples)
	assert.Greater(t, s.Correctness, 0.2)
	// The reply is over 80 runes, so confidence lands at the high tier.
	assert.InDelta(t, 0.8, s.ConfidenceEstimate, 1e-9)
}

func TestAnswerScoresAreClamped(t *testing.T) {
	s := Answer("не знаю", "")
	assert.GreaterOrEqual(t, s.Correctness, 0.0)
	assert.LessOrEqual(t, s.Correctness, 1.0)
	assert.LessOrEqual(t, s.Verbosity, 1.0)
}

func TestAnswerQuestionOverlapBonus(t *testing.T) {
	withOverlap := Answer("an index is a data structure", "what is an index")
	noOverlap := Answer("an index speeds lookups up", "explain database btrees")

	assert.Greater(t, withOverlap.Correctness, noOverlap.Correctness)
}

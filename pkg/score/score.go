// Package score implements the deterministic answer heuristic. It runs on
// every candidate reply regardless of whether the model service is
// reachable, so the session always carries at least these sub-scores.
package score

import (
	"strings"
	"unicode/utf8"
)

// Score is the heuristic judgment of a single answer.
type Score struct {
	Correctness        float64
	ConfidenceEstimate float64
	Verbosity          float64
	UsesExamples       bool
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Answer scores a candidate reply against the question it answered. The
// heuristic favors length, concrete examples, and lexical overlap with the
// question, and penalizes explicit "don't know" admissions. It works for
// English and Russian replies.
func Answer(answer, question string) Score {
	text := strings.ToLower(strings.TrimSpace(answer))
	// Rune count, not bytes; the thresholds must treat Cyrillic replies
	// the same as ASCII ones.
	length := utf8.RuneCountInString(text)
	verbosity := clamp01(float64(length) / 300.0)

	usesExamples := strings.Contains(text, "for example") ||
		strings.Contains(text, "например") ||
		strings.Contains(text, "example")

	base := 0.2
	if length > 40 {
		base += 0.2
	}
	if length > 120 {
		base += 0.2
	}
	if usesExamples {
		base += 0.1
	}
	if strings.Contains(text, "don't know") || strings.Contains(text, "не знаю") {
		base -= 0.3
	}
	if question != "" && overlapsQuestion(text, question) {
		base += 0.1
	}

	confidence := 0.4 + 0.1
	if length > 80 {
		confidence = 0.4 + 0.4
	}

	return Score{
		Correctness:        clamp01(base),
		ConfidenceEstimate: clamp01(confidence),
		Verbosity:          verbosity,
		UsesExamples:       usesExamples,
	}
}

// overlapsQuestion reports whether the answer echoes any of the first three
// words of the question, a weak signal that the candidate addressed it.
func overlapsQuestion(answer, question string) bool {
	words := strings.Fields(strings.ToLower(question))
	if len(words) > 3 {
		words = words[:3]
	}
	for _, w := range words {
		if strings.Contains(answer, w) {
			return true
		}
	}
	return false
}

// Package contextmgr builds the history windows embedded in model prompts,
// bounded both by turn count and by a token budget.
package contextmgr

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"interviewcoach/pkg/session"
)

// TokenCounter counts prompt tokens. All providers are approximated with
// the GPT-4 encoding.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a token counter.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the number of tokens in text, falling back to a
// 4-chars-per-token estimate if the codec fails.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// Windower renders session history into prompt fragments.
type Windower struct {
	counter *TokenCounter
	// maxTurns is the recency window; tokenBudget bounds the rendered
	// fragment when answers are long.
	maxTurns    int
	tokenBudget int
}

// NewWindower creates a windower. A nil counter degrades to the character
// estimate, never an error.
func NewWindower(counter *TokenCounter, maxTurns, tokenBudget int) *Windower {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &Windower{counter: counter, maxTurns: maxTurns, tokenBudget: tokenBudget}
}

// RecentHistory renders the last maxTurns question/answer pairs, oldest
// first, dropping the oldest pairs if the token budget is exceeded.
func (w *Windower) RecentHistory(items []session.HistoryItem) string {
	if len(items) > w.maxTurns {
		items = items[len(items)-w.maxTurns:]
	}

	for start := 0; start < len(items); start++ {
		rendered := renderItems(items[start:])
		if w.tokenBudget <= 0 || w.counter.CountTokens(rendered) <= w.tokenBudget {
			return rendered
		}
	}
	return "Нет данных."
}

// AskedQuestions renders the full list of previously asked questions as a
// bulleted block biasing the model away from repeats.
func (w *Windower) AskedQuestions(items []session.HistoryItem) string {
	var lines []string
	for _, item := range items {
		if q := strings.TrimSpace(item.Question); q != "" {
			lines = append(lines, "- "+q)
		}
	}
	if len(lines) == 0 {
		return "Нет."
	}
	return strings.Join(lines, "\n")
}

// RecentTurns renders the last maxTurns completed turns for the final
// report prompt.
func (w *Windower) RecentTurns(turns []session.Turn) string {
	if len(turns) > w.maxTurns {
		turns = turns[len(turns)-w.maxTurns:]
	}
	var lines []string
	for _, turn := range turns {
		lines = append(lines, "Q: "+turn.AgentVisibleMsg)
		lines = append(lines, "A: "+turn.UserMessage)
	}
	if len(lines) == 0 {
		return "Нет данных."
	}
	return strings.Join(lines, "\n")
}

func renderItems(items []session.HistoryItem) string {
	var lines []string
	for _, item := range items {
		if item.Question != "" {
			lines = append(lines, "Q: "+item.Question)
		}
		if item.Answer != "" {
			lines = append(lines, "A: "+item.Answer)
		}
	}
	if len(lines) == 0 {
		return "Нет данных."
	}
	return strings.Join(lines, "\n")
}

package observer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewcoach/pkg/config"
	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llm/resilience/cooldown"
	"interviewcoach/pkg/llm/resilience/retry"
	"interviewcoach/pkg/llmerrors"
	"interviewcoach/pkg/policy"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/schema"
)

const validAnalysis = `{
	"action": "increase",
	"scores": {"correctness": 0.9, "confidence": 0.8},
	"notes": "Уверенный ответ.",
	"status": "confirmed",
	"suggested_topic": "Transactions"
}`

func newTestObserver(client llm.Client) *Observer {
	return New(nil, client, policy.New(policy.Config{}), config.DefaultPrompts(), "Basics", nil)
}

// fallbackCounter records IncFallback calls for assertions.
type fallbackCounter struct {
	counts map[string]int
}

func (f *fallbackCounter) ObserveRequest(_, _ string, _ bool, _ string, _ time.Duration) {}

func (f *fallbackCounter) IncFallback(agent, reason string) {
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[agent+"/"+reason]++
}

func analyzeReq(question, reply string) proto.AnalyzeRequest {
	return proto.NewAnalyzeRequest(question, reply, "SQL")
}

func TestAnalyzeMergesModelAndHeuristicScores(t *testing.T) {
	mock := llm.NewMockClientText(validAnalysis)
	o := newTestObserver(mock)

	v := o.Analyze(context.Background(), analyzeReq(
		"Что такое индекс?",
		"Индекс это структура данных, например B-дерево, ускоряющая поиск по столбцу таблицы.",
	))

	assert.Equal(t, schema.ActionIncrease, v.Action)
	assert.InDelta(t, 0.9, v.Scores.Correctness, 1e-9)
	assert.InDelta(t, 0.8, v.Scores.ConfidenceEstimate, 1e-9)
	// Heuristic sub-scores survive alongside the model scores.
	assert.True(t, v.Scores.UsesExamples)
	assert.Greater(t, v.Scores.Verbosity, 0.0)
	assert.Equal(t, "Transactions", v.SuggestedTopic)
	assert.False(t, v.Degraded)
	assert.Contains(t, v.InternalThoughts, "Transactions")
}

func TestAnalyzeStopIntentSkipsModel(t *testing.T) {
	mock := llm.NewMockClientText(validAnalysis)
	o := newTestObserver(mock)

	v := o.Analyze(context.Background(), analyzeReq("Вопрос?", "Давай фидбэк, хватит вопросов"))

	assert.True(t, v.StopIntent)
	assert.Equal(t, 0, mock.Calls(), "termination phrasing must not reach the model")
}

func TestAnalyzeModelStopIntentFlag(t *testing.T) {
	mock := llm.NewMockClientText(`{
		"action": "same",
		"scores": {"correctness": 0.5, "confidence": 0.5},
		"stop_intent": true
	}`)
	o := newTestObserver(mock)

	v := o.Analyze(context.Background(), analyzeReq("Вопрос?", "я бы хотел уже закончить пожалуй"))
	assert.True(t, v.StopIntent)
}

func TestAnalyzeSchemaErrorFallsBackWithoutRetry(t *testing.T) {
	mock := llm.NewMockClientText(`{"action":"increase","scores":{"correctness":1.4,"confidence":0.5}}`)
	o := newTestObserver(mock)

	v := o.Analyze(context.Background(), analyzeReq("Что такое индекс?", "Индекс ускоряет поиск."))

	assert.True(t, v.Degraded)
	assert.Equal(t, schema.ActionSame, v.Action)
	assert.Equal(t, schema.StatusUnknown, v.Status)
	assert.Greater(t, v.Scores.Correctness, 0.0, "heuristic scores still present")
	assert.Equal(t, 1, mock.Calls(), "validation failures are not retried")
}

func TestAnalyzeTransportFailureDegrades(t *testing.T) {
	mock := llm.NewMockClient(nil, []error{
		llmerrors.New(llmerrors.ErrorTypeTransport, "connection refused"),
	})
	o := newTestObserver(mock)

	v := o.Analyze(context.Background(), analyzeReq(
		"Что такое индекс?",
		"Индекс это структура данных которая ускоряет поиск по большому столбцу таблицы.",
	))

	assert.True(t, v.Degraded)
	assert.Equal(t, schema.ActionSame, v.Action)
	assert.Equal(t, schema.StatusConfirmed, v.Status)
	assert.False(t, v.StopIntent)
}

func TestAnalyzeDegradedCountsFallback(t *testing.T) {
	mock := llm.NewMockClient(nil, []error{
		llmerrors.New(llmerrors.ErrorTypeTransport, "connection refused"),
	})
	counter := &fallbackCounter{}
	o := New(nil, mock, policy.New(policy.Config{}), config.DefaultPrompts(), "Basics", counter)

	v := o.Analyze(context.Background(), analyzeReq("Вопрос?", "Короткий ответ."))

	require.True(t, v.Degraded)
	assert.Equal(t, 1, counter.counts["observer/transport"])
}

func TestAnalyzeDegradedCarriesHeuristicReason(t *testing.T) {
	mock := llm.NewMockClient(nil, []error{
		llmerrors.New(llmerrors.ErrorTypeTransport, "connection refused"),
	})
	pol := policy.New(policy.Config{ActionReasons: policy.ActionReasons{
		Increase: "Уверенный ответ, повышаем сложность.",
		Same:     "Держим текущий уровень.",
		Decrease: "Ответ слабый, снижаем сложность.",
	}})
	o := New(nil, mock, pol, config.DefaultPrompts(), "Basics", nil)

	v := o.Analyze(context.Background(), analyzeReq("Вопрос?", "не знаю"))

	require.True(t, v.Degraded)
	// The verdict action stays "same" on a degraded analysis; the
	// score-derived reason only shows up in the internal notes.
	assert.Equal(t, schema.ActionSame, v.Action)
	assert.Contains(t, v.InternalThoughts, "Ответ слабый, снижаем сложность.")
}

func TestAnalyzeDegradedRoleReversalPrefilter(t *testing.T) {
	mock := llm.NewMockClient(nil, []error{
		llmerrors.New(llmerrors.ErrorTypeTransport, "connection refused"),
	})
	o := newTestObserver(mock)

	v := o.Analyze(context.Background(), analyzeReq("Вопрос?", "Что такое индекс в базе данных?"))
	assert.True(t, v.RoleReversal)
}

func TestAnalyzeHallucinationOverridesStatus(t *testing.T) {
	mock := llm.NewMockClientText(`{
		"action": "same",
		"scores": {"correctness": 0.6, "confidence": 0.9},
		"status": "confirmed",
		"hallucination": true,
		"hallucination_reason": "SQL-92 не вводил оконные функции"
	}`)
	o := newTestObserver(mock)

	v := o.Analyze(context.Background(), analyzeReq("Вопрос?", "Оконные функции появились в SQL-92."))

	assert.Equal(t, schema.StatusHallucinationSuspect, v.Status)
	assert.True(t, v.Hallucination)
	assert.Contains(t, v.InternalThoughts, "SQL-92")
}

// Full resilience chain: after retries exhaust, the cooldown gate makes the
// next analysis fail fast instead of waiting on the model again.
func TestAnalyzeCooldownFailsFast(t *testing.T) {
	failing := llm.NewMockClient(nil, []error{
		llmerrors.New(llmerrors.ErrorTypeTransport, "down"),
		llmerrors.New(llmerrors.ErrorTypeTransport, "down"),
		llmerrors.New(llmerrors.ErrorTypeTransport, "down"),
		llmerrors.New(llmerrors.ErrorTypeTransport, "down"),
	})
	gate := cooldown.New(cooldown.Config{Window: 30 * time.Second})
	client := llm.Chain(failing,
		cooldown.Middleware(gate),
		retry.Middleware(retry.NewPolicy(retry.Config{
			MaxAttempts:   3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2.0,
		}, nil)),
	)
	o := newTestObserver(client)

	first := o.Analyze(context.Background(), analyzeReq("Вопрос?", "Первый ответ кандидата."))
	require.True(t, first.Degraded)
	assert.Equal(t, 3, failing.Calls())

	start := time.Now()
	second := o.Analyze(context.Background(), analyzeReq("Вопрос?", "Второй ответ кандидата."))
	assert.True(t, second.Degraded)
	assert.Equal(t, 3, failing.Calls(), "cooldown blocks the model call entirely")
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

package interviewer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewcoach/pkg/config"
	"interviewcoach/pkg/contextmgr"
	"interviewcoach/pkg/llm"
	"interviewcoach/pkg/llmerrors"
	"interviewcoach/pkg/policy"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/schema"
	"interviewcoach/pkg/score"
	"interviewcoach/pkg/session"
)

type fixture struct {
	iv        *Interviewer
	sess      *session.Session
	events    chan proto.Event
	observer  chan proto.AnalyzeRequest
	fallbacks *fallbackCounter
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

func newFixture(t *testing.T, client llm.Client, mutate func(*config.InterviewerConfig)) *fixture {
	t.Helper()

	cfg := config.DefaultConfig().Interviewer
	cfg.ObserverTimeoutSeconds = 1
	if mutate != nil {
		mutate(&cfg)
	}

	sess := session.New("Team Alpha",
		session.Meta{Name: "Алекс", Position: "Backend Developer", Grade: "Junior"},
		cfg.DefaultTopic, session.FeedbackDefaults{})

	events := make(chan proto.Event, 64)
	observerCh := make(chan proto.AnalyzeRequest, 1)

	fallbacks := &fallbackCounter{}
	iv := New(nil, observerCh, events, sess, client, policy.New(policy.Config{}),
		config.DefaultPrompts(), cfg, contextmgr.NewWindower(nil, cfg.MaxHistoryTurns, 0), fallbacks)

	return &fixture{iv: iv, sess: sess, events: events, observer: observerCh, fallbacks: fallbacks}
}

// respondObserver answers the next analyze request with the given verdict.
func (f *fixture) respondObserver(t *testing.T, verdict proto.ObserverVerdict) {
	t.Helper()
	go func() {
		select {
		case req := <-f.observer:
			verdict.Topic = req.Topic
			req.Reply <- verdict
		case <-time.After(2 * time.Second):
			t.Error("no analyze request arrived")
		}
	}()
}

func (f *fixture) drainEvents() []proto.Event {
	var out []proto.Event
	for {
		select {
		case ev := <-f.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(events []proto.Event) []proto.EventKind {
	out := make([]proto.EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func lastVisible(events []proto.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == proto.EventInterviewer {
			return events[i].Text
		}
	}
	return ""
}

func alwaysFailingClient() llm.Client {
	errs := make([]error, 64)
	for i := range errs {
		errs[i] = llmerrors.New(llmerrors.ErrorTypeTransport, "model service down")
	}
	return llm.NewMockClient(nil, errs)
}

func TestStartWithoutModel(t *testing.T) {
	f := newFixture(t, alwaysFailingClient(), nil)

	f.iv.Start()

	assert.Equal(t, StateAwaitingReply, f.iv.State())
	events := f.drainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, proto.EventInterviewer, events[0].Kind)
	assert.Contains(t, events[0].Text, "Backend Developer")
	assert.NotEmpty(t, f.sess.LastQuestion())
}

func TestStartTwiceRejected(t *testing.T) {
	f := newFixture(t, alwaysFailingClient(), nil)
	f.iv.Start()
	f.drainEvents()

	f.iv.Start()
	assert.Empty(t, f.drainEvents(), "second start must not emit another question")
}

func TestHandleReplyAsksNextQuestion(t *testing.T) {
	f := newFixture(t, llm.NewMockClientText(
		`{"question":"Что такое транзакция?","reasoning":"Проверяем основы БД","comment":"Хороший ответ!"}`,
	), nil)
	f.iv.Start()
	f.drainEvents()

	f.respondObserver(t, proto.ObserverVerdict{
		Action: schema.ActionIncrease,
		Status: schema.StatusConfirmed,
	})
	f.iv.HandleReply(context.Background(), "Индекс ускоряет поиск по столбцу.")

	assert.Equal(t, StateAwaitingReply, f.iv.State())
	events := f.drainEvents()
	visible := lastVisible(events)
	assert.Contains(t, visible, "Что такое транзакция?")
	assert.Contains(t, visible, "Хороший ответ!")

	turns := f.sess.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "Индекс ускоряет поиск по столбцу.", turns[0].UserMessage)
	assert.Equal(t, schema.ActionIncrease, turns[0].Action)
	require.Len(t, f.sess.Observations(), 1)
}

func TestHandleReplyStopIntent(t *testing.T) {
	f := newFixture(t, alwaysFailingClient(), nil)
	f.iv.Start()
	f.drainEvents()

	f.respondObserver(t, proto.ObserverVerdict{
		Action:     schema.ActionSame,
		StopIntent: true,
	})
	f.iv.HandleReply(context.Background(), "Давай фидбэк")

	assert.Equal(t, StateAwaitingFinalize, f.iv.State())
	events := f.drainEvents()
	assert.Contains(t, kinds(events), proto.EventStop)
	assert.Empty(t, lastVisible(events), "no further question after stop intent")
	assert.Empty(t, f.sess.Turns(), "stop replies are not scored turns")
}

func TestHandleReplyAfterFinalizeRejected(t *testing.T) {
	f := newFixture(t, alwaysFailingClient(), nil)
	f.iv.Start()
	f.respondObserver(t, proto.ObserverVerdict{StopIntent: true})
	f.iv.HandleReply(context.Background(), "стоп")
	f.drainEvents()

	f.iv.HandleReply(context.Background(), "ещё один ответ")
	assert.Empty(t, f.drainEvents())
	assert.Equal(t, StateAwaitingFinalize, f.iv.State())
}

func TestHandleReplyRoleReversal(t *testing.T) {
	f := newFixture(t, llm.NewMockClientText(
		"Индекс это структура для быстрого поиска.",
		`{"question":"Что такое JOIN?","reasoning":"дальше"}`,
	), nil)
	f.iv.Start()
	f.drainEvents()

	f.respondObserver(t, proto.ObserverVerdict{
		Action:       schema.ActionSame,
		Status:       schema.StatusConfirmed,
		RoleReversal: true,
	})
	f.iv.HandleReply(context.Background(), "Что такое индекс в базе данных?")

	events := f.drainEvents()
	var visible []string
	for _, ev := range events {
		if ev.Kind == proto.EventInterviewer {
			visible = append(visible, ev.Text)
		}
	}
	// The answer to the counter-question, then the next question.
	require.Len(t, visible, 2)
	assert.Contains(t, visible[0], "структура")
	assert.Contains(t, visible[1], "JOIN")

	// The reversal reply is not a scored turn; only the regular turn is.
	require.Len(t, f.sess.Turns(), 1)
}

func TestHandleReplyObserverTimeoutDegrades(t *testing.T) {
	f := newFixture(t, llm.NewMockClientText(`{"question":"Следующий вопрос?","reasoning":"r"}`), func(cfg *config.InterviewerConfig) {
		cfg.ObserverTimeoutSeconds = 0 // expire immediately
	})
	f.iv.Start()
	f.drainEvents()

	// Nobody reads the observer channel: the bounded wait must expire and
	// the interview proceed with a degraded verdict.
	f.iv.HandleReply(context.Background(), "Ответ без наблюдателя.")

	assert.Equal(t, StateAwaitingReply, f.iv.State())
	assert.Contains(t, lastVisible(f.drainEvents()), "Следующий вопрос?")
	require.Len(t, f.sess.Turns(), 1)
	assert.Equal(t, schema.ActionSame, f.sess.Turns()[0].Action)
}

func TestGenerateQuestionFallsBackToRotation(t *testing.T) {
	f := newFixture(t, alwaysFailingClient(), nil)
	f.iv.Start()
	f.drainEvents()

	f.respondObserver(t, proto.ObserverVerdict{Action: schema.ActionSame, Status: schema.StatusConfirmed})
	f.iv.HandleReply(context.Background(), "Какой-то ответ кандидата.")

	visible := lastVisible(f.drainEvents())
	assert.NotEmpty(t, visible, "rotation question must appear when the model is down")

	cfg := config.DefaultConfig().Interviewer
	assert.Contains(t, cfg.BaseQuestions, visible)
	assert.Equal(t, 1, f.fallbacks.counts["interviewer/question_rotation"])
}

func TestNoDuplicateQuestionsAcrossSession(t *testing.T) {
	// The model stubbornly repeats the same question; the rotation must
	// take over and the transcript must stay duplicate-free.
	repeated := `{"question":"Что такое индекс?","reasoning":"r"}`
	responses := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		responses = append(responses, repeated)
	}
	f := newFixture(t, llm.NewMockClientText(responses...), nil)
	f.iv.Start()
	f.drainEvents()

	for i := 0; i < 5; i++ {
		f.respondObserver(t, proto.ObserverVerdict{Action: schema.ActionSame, Status: schema.StatusConfirmed})
		f.iv.HandleReply(context.Background(), "Ответ кандидата номер "+string(rune('A'+i))+".")
	}

	seen := map[string]bool{}
	for _, item := range f.sess.History() {
		key := item.Question
		assert.False(t, seen[key], "duplicate question emitted: %s", key)
		seen[key] = true
	}
}

func TestRotationExhaustionEndsInterview(t *testing.T) {
	f := newFixture(t, alwaysFailingClient(), func(cfg *config.InterviewerConfig) {
		cfg.BaseQuestions = []string{"Единственный вопрос?"}
	})
	f.iv.Start()
	f.drainEvents()

	// First reply consumes the only rotation question.
	f.respondObserver(t, proto.ObserverVerdict{Action: schema.ActionSame, Status: schema.StatusConfirmed})
	f.iv.HandleReply(context.Background(), "Первый ответ.")
	assert.Equal(t, StateAwaitingReply, f.iv.State())
	f.drainEvents()

	// Second reply finds the rotation exhausted.
	f.respondObserver(t, proto.ObserverVerdict{Action: schema.ActionSame, Status: schema.StatusConfirmed})
	f.iv.HandleReply(context.Background(), "Второй ответ.")

	assert.Equal(t, StateAwaitingFinalize, f.iv.State())
	assert.Contains(t, kinds(f.drainEvents()), proto.EventStop)
}

func TestTopicFromQuestion(t *testing.T) {
	f := newFixture(t, alwaysFailingClient(), nil)
	assert.Equal(t, "SQL", f.iv.topicFromQuestion("Зачем нужен индекс в таблице?"))
	assert.Equal(t, "Concurrency", f.iv.topicFromQuestion("Чем процесс отличается от потока?"))
	assert.Equal(t, f.iv.cfg.DefaultTopic, f.iv.topicFromQuestion("Расскажите о себе"))
}

func TestRecordObservationDerivesGapFromScores(t *testing.T) {
	f := newFixture(t, alwaysFailingClient(), nil)
	f.iv.recordObservation(proto.ObserverVerdict{
		Status: schema.StatusConfirmed,
		Topic:  "SQL",
		Scores: score.Score{Correctness: 0.9, ConfidenceEstimate: 0.8},
	})
	f.iv.recordObservation(proto.ObserverVerdict{
		Status: schema.StatusConfirmed,
		Topic:  "Web",
		Scores: score.Score{Correctness: 0.2, ConfidenceEstimate: 0.5},
	})

	obs := f.sess.Observations()
	require.Len(t, obs, 2)
	assert.Equal(t, schema.StatusConfirmed, obs[0].Status)
	assert.Equal(t, schema.StatusGap, obs[1].Status)
}

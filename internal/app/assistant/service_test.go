package assistant_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/adapters/llm"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/adapters/storage/memory"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/assistant"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/reminders"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/window"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/scheduler"
)

type capturingMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (m *capturingMessenger) Send(ctx context.Context, chatID domain.ChatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return nil
}

func (m *capturingMessenger) last(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected at least one outbound message")
	}
	return m.sent[len(m.sent)-1]
}

type fixture struct {
	svc       *assistant.Service
	mock      *llm.MockLLM
	messenger *capturingMessenger
	messages  *memory.MessageStore
	reminders *memory.ReminderStore
	sched     *scheduler.Scheduler
}

func newFixture(t *testing.T, opts ...assistant.Option) *fixture {
	t.Helper()

	mock := llm.NewMockLLM()
	messenger := &capturingMessenger{}
	messages := memory.NewMessageStore()
	reminderStore := memory.NewReminderStore()
	sched := scheduler.New()
	t.Cleanup(sched.Stop)

	reminderSvc := reminders.NewService(reminderStore, messages, sched, noopDeliverer{})
	svc := assistant.NewService(
		messages,
		window.NewBuilder(messages),
		mock, mock, mock, mock,
		messenger,
		reminderSvc,
		time.UTC,
		opts...,
	)

	return &fixture{
		svc:       svc,
		mock:      mock,
		messenger: messenger,
		messages:  messages,
		reminders: reminderStore,
		sched:     sched,
	}
}

type noopDeliverer struct{}

func (noopDeliverer) Deliver(ctx context.Context, id domain.ReminderID) {}

func strptr(s string) *string { return &s }

func TestConversationTurn(t *testing.T) {
	f := newFixture(t)
	f.mock.ClassifyFn = func(ctx context.Context, summary string) (domain.Intent, error) {
		return domain.IntentConversation, nil
	}
	f.mock.ReplyFn = func(ctx context.Context, summary string) (string, error) {
		return "¡Hola! ¿Qué tal?", nil
	}

	if err := f.svc.HandleTurn(context.Background(), "chat-1", "hola"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if got := f.messenger.last(t); got != "¡Hola! ¿Qué tal?" {
		t.Fatalf("unexpected reply: %q", got)
	}

	// Both the user turn and the assistant reply land in the chat log.
	win, _ := f.messages.MessagesSince(context.Background(), domain.WindowQuery{
		ChatID: "chat-1", Since: time.Now().Add(-time.Hour),
	})
	if len(win) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(win))
	}
	if win[0].Origin != domain.OriginUser || win[1].Origin != domain.OriginAssistant {
		t.Fatalf("unexpected origins: %s, %s", win[0].Origin, win[1].Origin)
	}
}

func TestExtractionDecisionTable(t *testing.T) {
	cases := []struct {
		name       string
		extraction domain.Extraction
		wantReply  string
	}{
		{
			name:       "both missing",
			extraction: domain.Extraction{},
			wantReply:  assistant.ReplyAskBoth,
		},
		{
			name:       "message missing",
			extraction: domain.Extraction{ScheduleTime: strptr("2025-02-01 16:00")},
			wantReply:  assistant.ReplyAskMessage,
		},
		{
			name:       "time missing",
			extraction: domain.Extraction{Message: strptr("mirar si hay comida")},
			wantReply:  assistant.ReplyAskTime,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.mock.ClassifyFn = func(ctx context.Context, summary string) (domain.Intent, error) {
				return domain.IntentReminder, nil
			}
			f.mock.ExtractFn = func(ctx context.Context, summary string, now time.Time) (domain.Extraction, error) {
				return tc.extraction, nil
			}

			if err := f.svc.HandleTurn(context.Background(), "chat-1", "recuérdame"); err != nil {
				t.Fatalf("HandleTurn failed: %v", err)
			}
			if got := f.messenger.last(t); got != tc.wantReply {
				t.Fatalf("expected %q, got %q", tc.wantReply, got)
			}

			// Clarification turns create no reminder and leave the window
			// unprocessed for the next attempt.
			pending, _ := f.reminders.ListPendingReminders(context.Background())
			if len(pending) != 0 {
				t.Fatalf("expected no reminder, got %d", len(pending))
			}
			processed := true
			win, _ := f.messages.MessagesSince(context.Background(), domain.WindowQuery{
				ChatID: "chat-1", Since: time.Now().Add(-time.Hour), Processed: &processed,
			})
			if len(win) != 0 {
				t.Fatalf("expected no processed messages, got %d", len(win))
			}
		})
	}
}

func TestReminderTurnEndToEnd(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, assistant.WithClock(func() time.Time { return now }))

	f.mock.ClassifyFn = func(ctx context.Context, summary string) (domain.Intent, error) {
		if !strings.Contains(summary, "recuérdame") {
			t.Errorf("classifier did not receive the summary: %q", summary)
		}
		return domain.IntentReminder, nil
	}
	f.mock.ExtractFn = func(ctx context.Context, summary string, extractNow time.Time) (domain.Extraction, error) {
		if !extractNow.Equal(now) {
			t.Errorf("extractor must receive the turn's reference time, got %v", extractNow)
		}
		return domain.Extraction{
			Message:      strptr("llame al médico"),
			ScheduleTime: strptr("2025-06-01 18:00"),
		}, nil
	}

	if err := f.svc.HandleTurn(context.Background(), "chat-1", "recuérdame a las 18 que llame al médico"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	// Confirmation carries the literal schedule time.
	if got := f.messenger.last(t); !strings.Contains(got, "2025-06-01 18:00") {
		t.Fatalf("expected confirmation with schedule time, got %q", got)
	}

	pending, _ := f.reminders.ListPendingReminders(context.Background())
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending reminder, got %d", len(pending))
	}
	r := pending[0]
	if r.Message != "llame al médico" {
		t.Fatalf("unexpected reminder message: %q", r.Message)
	}
	want := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	if !r.ScheduleTime.Equal(want) {
		t.Fatalf("expected schedule time %v, got %v", want, r.ScheduleTime)
	}

	// The contributing user message got consumed.
	processed := true
	origin := domain.OriginUser
	win, _ := f.messages.MessagesSince(context.Background(), domain.WindowQuery{
		ChatID: "chat-1", Since: now.Add(-time.Hour), Processed: &processed, Origin: &origin,
	})
	if len(win) != 1 {
		t.Fatalf("expected the user message marked processed, got %d", len(win))
	}
}

func TestStaleScheduleTimeAsksAgain(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, assistant.WithClock(func() time.Time { return now }))

	f.mock.ClassifyFn = func(ctx context.Context, summary string) (domain.Intent, error) {
		return domain.IntentReminder, nil
	}
	f.mock.ExtractFn = func(ctx context.Context, summary string, _ time.Time) (domain.Extraction, error) {
		return domain.Extraction{
			Message:      strptr("llame al médico"),
			ScheduleTime: strptr("2025-06-01 08:00"), // before the reference instant
		}, nil
	}

	if err := f.svc.HandleTurn(context.Background(), "chat-1", "recuérdame"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if got := f.messenger.last(t); got != assistant.ReplyAskFuture {
		t.Fatalf("expected stale-time clarification, got %q", got)
	}
	pending, _ := f.reminders.ListPendingReminders(context.Background())
	if len(pending) != 0 {
		t.Fatalf("stale extraction must not create a reminder, got %d", len(pending))
	}
}

func TestClassifierFailureApologizes(t *testing.T) {
	f := newFixture(t)
	f.mock.ClassifyFn = func(ctx context.Context, summary string) (domain.Intent, error) {
		return "", errors.New("model unavailable")
	}

	err := f.svc.HandleTurn(context.Background(), "chat-1", "hola")
	if err == nil {
		t.Fatal("expected HandleTurn to report the failure")
	}
	if got := f.messenger.last(t); got != assistant.GenericErrorReply {
		t.Fatalf("expected generic apology, got %q", got)
	}
}

// emptyWindowStore accepts writes but always serves an empty window, to
// exercise the turn path with no conversational context.
type emptyWindowStore struct{ domain.MessageStore }

func (s emptyWindowStore) MessagesSince(ctx context.Context, q domain.WindowQuery) ([]*domain.Message, error) {
	return nil, nil
}

func TestEmptyWindowIsConversation(t *testing.T) {
	mock := llm.NewMockLLM()
	messenger := &capturingMessenger{}
	messages := emptyWindowStore{memory.NewMessageStore()}
	sched := scheduler.New()
	t.Cleanup(sched.Stop)

	reminderSvc := reminders.NewService(memory.NewReminderStore(), messages, sched, noopDeliverer{})
	svc := assistant.NewService(
		messages,
		window.NewBuilder(messages),
		mock, mock, mock, mock,
		messenger,
		reminderSvc,
		time.UTC,
	)

	classified := false
	mock.ClassifyFn = func(ctx context.Context, summary string) (domain.Intent, error) {
		classified = true
		return domain.IntentReminder, nil
	}

	if err := svc.HandleTurn(context.Background(), "chat-1", "hola"); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if classified {
		t.Fatal("classifier must not run on an empty window")
	}
	// The turn still answers conversationally.
	if messenger.last(t) == "" {
		t.Fatal("expected a conversational reply")
	}
}

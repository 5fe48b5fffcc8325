package reminders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/adapters/storage/memory"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/scheduler"
)

// recordingScheduler captures registrations instead of arming timers.
type recordingScheduler struct {
	mu        sync.Mutex
	scheduled map[domain.ReminderID]time.Time
	cancelled []domain.ReminderID
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{scheduled: make(map[domain.ReminderID]time.Time)}
}

func (s *recordingScheduler) ScheduleAt(id domain.ReminderID, when time.Time, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[id] = when
}

func (s *recordingScheduler) Cancel(id domain.ReminderID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.scheduled[id]
	delete(s.scheduled, id)
	s.cancelled = append(s.cancelled, id)
	return ok
}

type noopDeliverer struct{}

func (noopDeliverer) Deliver(ctx context.Context, id domain.ReminderID) {}

func TestCreateSchedulesAndMarksProcessed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewReminderStore()
	messages := memory.NewMessageStore()
	sched := newRecordingScheduler()

	svc := NewService(store, messages, sched, noopDeliverer{})

	if err := messages.AppendMessage(ctx, &domain.Message{
		ID: "m1", ChatID: "chat-1", Origin: domain.OriginUser, Timestamp: time.Now(),
	}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	when := time.Now().Add(time.Hour)
	r, err := svc.Create(ctx, "chat-1", "llame al médico", when, []domain.MessageID{"m1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetReminder(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetReminder failed: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}

	if scheduledAt, ok := sched.scheduled[r.ID]; !ok || !scheduledAt.Equal(when) {
		t.Fatalf("expected job scheduled at %v, got %v (registered=%v)", when, scheduledAt, ok)
	}

	window, _ := messages.MessagesSince(ctx, domain.WindowQuery{
		ChatID: "chat-1", Since: time.Now().Add(-time.Hour),
	})
	if len(window) != 1 || !window[0].Processed {
		t.Fatalf("expected contributing message marked processed, got %+v", window)
	}
}

func TestCancelRemovesJobAndMarksCancelled(t *testing.T) {
	ctx := context.Background()
	store := memory.NewReminderStore()
	sched := newRecordingScheduler()

	svc := NewService(store, memory.NewMessageStore(), sched, noopDeliverer{})

	r, err := svc.Create(ctx, "chat-1", "hola", time.Now().Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Cancel(ctx, r.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	got, _ := store.GetReminder(ctx, r.ID)
	if got.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if _, stillScheduled := sched.scheduled[r.ID]; stillScheduled {
		t.Fatal("expected live job removed on cancel")
	}

	// A terminal reminder cannot be cancelled again.
	if err := svc.Cancel(ctx, r.ID); err == nil {
		t.Fatal("expected error cancelling a terminal reminder")
	}
}

func TestReloadPendingSplitsFutureAndMissed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewReminderStore()
	sched := newRecordingScheduler()

	svc := NewService(store, memory.NewMessageStore(), sched, noopDeliverer{})

	now := time.Now()
	future := &domain.Reminder{
		ID: "future", ChatID: "chat-1", Message: "pronto",
		ScheduleTime: now.Add(time.Hour), Status: domain.StatusPending, CreatedAt: now,
	}
	missed := &domain.Reminder{
		ID: "missed", ChatID: "chat-1", Message: "tarde",
		ScheduleTime: now.Add(-time.Hour), Status: domain.StatusPending, CreatedAt: now,
	}
	for _, r := range []*domain.Reminder{future, missed} {
		if err := store.CreateReminder(ctx, r); err != nil {
			t.Fatalf("CreateReminder failed: %v", err)
		}
	}

	if err := svc.ReloadPending(ctx); err != nil {
		t.Fatalf("ReloadPending failed: %v", err)
	}

	if _, ok := sched.scheduled["future"]; !ok {
		t.Fatal("expected future reminder re-registered")
	}
	if _, ok := sched.scheduled["missed"]; ok {
		t.Fatal("missed reminder must not be re-registered")
	}

	got, _ := store.GetReminder(ctx, "missed")
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected missed reminder failed, got %s", got.Status)
	}
	if got.Error == nil {
		t.Fatal("expected missed reminder to carry a reason")
	}

	got, _ = store.GetReminder(ctx, "future")
	if got.Status != domain.StatusPending {
		t.Fatalf("expected future reminder still pending, got %s", got.Status)
	}
}

// With the real scheduler, creating the same id twice must end in a single
// fire at the later time. Create always mints fresh ids, so this exercises
// the scheduler contract through the service's schedule path.
func TestRescheduleThroughRealScheduler(t *testing.T) {
	ctx := context.Background()
	store := memory.NewReminderStore()
	sched := scheduler.New()
	defer sched.Stop()

	var mu sync.Mutex
	var fires []domain.ReminderID
	deliver := deliverFunc(func(ctx context.Context, id domain.ReminderID) {
		mu.Lock()
		defer mu.Unlock()
		fires = append(fires, id)
	})

	svc := NewService(store, memory.NewMessageStore(), sched, deliver)

	r := &domain.Reminder{
		ID: "r1", ChatID: "chat-1", Message: "hola",
		ScheduleTime: time.Now().Add(20 * time.Millisecond),
		Status:       domain.StatusPending, CreatedAt: time.Now(),
	}
	if err := store.CreateReminder(ctx, r); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	// Register twice through the reload path: second registration replaces
	// the first.
	svc.schedule(r)
	r2 := *r
	r2.ScheduleTime = time.Now().Add(60 * time.Millisecond)
	svc.schedule(&r2)

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fires) != 1 {
		t.Fatalf("expected exactly one fire, got %d", len(fires))
	}
}

type deliverFunc func(ctx context.Context, id domain.ReminderID)

func (f deliverFunc) Deliver(ctx context.Context, id domain.ReminderID) { f(ctx, id) }

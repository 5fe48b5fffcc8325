// Package reminders holds the reminder lifecycle: creation, scheduling,
// cancellation and the startup reload of pending records.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/observability"
)

// Deliverer runs the delivery pipeline for a due reminder. It owns the
// terminal status write, so Deliver has no error to report here.
type Deliverer interface {
	Deliver(ctx context.Context, id domain.ReminderID)
}

type Service struct {
	store     domain.ReminderStore
	messages  domain.MessageStore
	scheduler domain.Scheduler
	deliver   Deliverer
	now       func() time.Time
}

func NewService(
	store domain.ReminderStore,
	messages domain.MessageStore,
	scheduler domain.Scheduler,
	deliver Deliverer,
) *Service {
	return &Service{
		store:     store,
		messages:  messages,
		scheduler: scheduler,
		deliver:   deliver,
		now:       time.Now,
	}
}

// Create persists a pending reminder, registers its one-shot job and marks
// the contributing messages processed. The job registration replaces any
// prior job with the same id, so repeated creation paths cannot double-fire.
func (s *Service) Create(
	ctx context.Context,
	chatID domain.ChatID,
	message string,
	scheduleTime time.Time,
	contributing []domain.MessageID,
) (*domain.Reminder, error) {
	log := observability.LoggerFromContext(ctx)

	reminder := &domain.Reminder{
		ID:           domain.ReminderID(uuid.NewString()),
		ChatID:       chatID,
		Message:      message,
		ScheduleTime: scheduleTime,
		Status:       domain.StatusPending,
		CreatedAt:    s.now(),
	}

	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	s.schedule(reminder)

	// The reminder exists and its job is live; a failure flipping the
	// processed flags must not undo that. Worst case the same text is
	// summarized once more in the next window.
	if len(contributing) > 0 {
		if err := s.messages.MarkProcessed(ctx, contributing); err != nil {
			log.Warn("failed to mark messages processed",
				"reminder_id", reminder.ID,
				"error", err,
			)
		}
	}

	log.Info("reminder created",
		"reminder_id", reminder.ID,
		"schedule_time", reminder.ScheduleTime,
	)
	return reminder, nil
}

// Cancel marks a pending reminder cancelled and removes its live job.
func (s *Service) Cancel(ctx context.Context, id domain.ReminderID) error {
	if err := s.store.MarkCancelled(ctx, id); err != nil {
		return err
	}
	s.scheduler.Cancel(id)
	observability.LoggerFromContext(ctx).Info("reminder cancelled", "reminder_id", id)
	return nil
}

// List returns every reminder of a chat, due-time ascending.
func (s *Service) List(ctx context.Context, chatID domain.ChatID) ([]*domain.Reminder, error) {
	return s.store.ListRemindersByChat(ctx, chatID)
}

// MarkMessagesProcessed flips the processed flag of the given messages.
func (s *Service) MarkMessagesProcessed(ctx context.Context, ids []domain.MessageID) error {
	return s.messages.MarkProcessed(ctx, ids)
}

// ReloadPending rehydrates the job table from the store after a restart:
// reminders still due in the future get their job back, reminders whose
// time passed while the process was down are marked failed instead of
// dangling in pending forever.
func (s *Service) ReloadPending(ctx context.Context) error {
	log := observability.LoggerFromContext(ctx)

	pending, err := s.store.ListPendingReminders(ctx)
	if err != nil {
		return fmt.Errorf("list pending reminders: %w", err)
	}

	now := s.now()
	var reloaded, missed int
	for _, r := range pending {
		if r.ScheduleTime.After(now) {
			s.schedule(r)
			reloaded++
			continue
		}

		reason := "missed while process was down"
		if err := s.store.MarkTerminal(ctx, r.ID, false, &reason); err != nil {
			log.Error("failed to fail missed reminder",
				"reminder_id", r.ID,
				"error", err,
			)
			continue
		}
		missed++
	}

	log.Info("pending reminders reloaded", "reloaded", reloaded, "missed", missed)
	return nil
}

func (s *Service) schedule(r *domain.Reminder) {
	id := r.ID
	s.scheduler.ScheduleAt(id, r.ScheduleTime, func(ctx context.Context) {
		s.deliver.Deliver(ctx, id)
	})
}

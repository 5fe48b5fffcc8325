package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
)

type ReminderStore struct {
	mu        sync.RWMutex
	reminders map[domain.ReminderID]*domain.Reminder
	now       func() time.Time
}

func NewReminderStore() *ReminderStore {
	return &ReminderStore{
		reminders: make(map[domain.ReminderID]*domain.Reminder),
		now:       time.Now,
	}
}

func (s *ReminderStore) CreateReminder(ctx context.Context, r *domain.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *r
	s.reminders[r.ID] = &copy
	return nil
}

func (s *ReminderStore) GetReminder(ctx context.Context, id domain.ReminderID) (*domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reminders[id]
	if !ok {
		return nil, domain.ErrReminderNotFound
	}
	copy := *r
	return &copy, nil
}

func (s *ReminderStore) MarkTerminal(ctx context.Context, id domain.ReminderID, success bool, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reminders[id]
	if !ok {
		return domain.ErrReminderNotFound
	}
	if r.Status != domain.StatusPending {
		return domain.ErrReminderNotPending
	}

	now := s.now()
	if success {
		r.Status = domain.StatusSent
		r.Error = nil
	} else {
		r.Status = domain.StatusFailed
		r.Error = errMsg
	}
	r.LastAttempt = &now
	return nil
}

func (s *ReminderStore) MarkCancelled(ctx context.Context, id domain.ReminderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reminders[id]
	if !ok {
		return domain.ErrReminderNotFound
	}
	if r.Status != domain.StatusPending {
		return domain.ErrReminderNotPending
	}
	r.Status = domain.StatusCancelled
	return nil
}

func (s *ReminderStore) ListRemindersByChat(ctx context.Context, chatID domain.ChatID) ([]*domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Reminder
	for _, r := range s.reminders {
		if r.ChatID == chatID {
			copy := *r
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduleTime.Before(out[j].ScheduleTime)
	})
	return out, nil
}

func (s *ReminderStore) ListPendingReminders(ctx context.Context) ([]*domain.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Reminder
	for _, r := range s.reminders {
		if r.Status == domain.StatusPending {
			copy := *r
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduleTime.Before(out[j].ScheduleTime)
	})
	return out, nil
}

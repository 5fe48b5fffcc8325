// Package scheduler implements an in-process, one-shot job table keyed by
// reminder id. At most one live job exists per id: scheduling again with
// the same id replaces the prior registration, so a reminder can never
// fire twice.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/observability"
)

type job struct {
	timer *time.Timer
}

type Scheduler struct {
	mu     sync.Mutex
	jobs   map[domain.ReminderID]*job
	wg     sync.WaitGroup
	closed bool
	now    func() time.Time
}

func New() *Scheduler {
	return &Scheduler{
		jobs: make(map[domain.ReminderID]*job),
		now:  time.Now,
	}
}

// ScheduleAt registers fn to run once at when. A due time in the past
// fires immediately. Re-scheduling an id cancels the previous job first.
func (s *Scheduler) ScheduleAt(id domain.ReminderID, when time.Time, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		observability.Logger().Warn("schedule after shutdown ignored", "reminder_id", id)
		return
	}

	if prev, ok := s.jobs[id]; ok {
		prev.timer.Stop()
	}

	delay := when.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	j := &job{}
	j.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// The timer may have lost a race with a same-id replacement or
		// with Stop; only the job still registered under this id runs.
		if s.closed || s.jobs[id] != j {
			s.mu.Unlock()
			return
		}
		delete(s.jobs, id)
		s.wg.Add(1)
		s.mu.Unlock()

		defer s.wg.Done()
		fn(context.Background())
	})
	s.jobs[id] = j

	observability.Logger().Info("job scheduled",
		"reminder_id", id,
		"run_at", when,
	)
}

// Cancel removes the live job for id, if any. Reports whether a job was
// actually registered.
func (s *Scheduler) Cancel(id domain.ReminderID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	j.timer.Stop()
	delete(s.jobs, id)
	return true
}

// Len reports how many jobs are currently registered.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stop cancels every pending job and waits for in-flight callbacks to
// finish. No job starts after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	for id, j := range s.jobs {
		j.timer.Stop()
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

package domain

import (
	"errors"
	"time"
)

var (
	ErrReminderNotFound   = errors.New("reminder not found")
	ErrReminderNotPending = errors.New("reminder is not pending")
	ErrMessageNotFound    = errors.New("message not found")
)

// Reminder pairs a literal user message with a future delivery time.
// Status moves pending → sent|failed exactly once, at trigger time, or
// pending → cancelled through an explicit cancel. Terminal records are
// immutable except LastAttempt/Error, written at the same transition.
type Reminder struct {
	ID           ReminderID
	ChatID       ChatID
	Message      string
	ScheduleTime time.Time
	Status       ReminderStatus
	CreatedAt    time.Time
	LastAttempt  *time.Time
	Error        *string
}

// Terminal reports whether the reminder reached a final state.
func (r *Reminder) Terminal() bool {
	return r.Status != StatusPending
}

// Extraction is the structured result of reading a reminder request out of
// a conversation summary. A nil field means "not found", which is distinct
// from an empty string.
type Extraction struct {
	Message      *string
	ScheduleTime *string
}

package domain

import (
	"context"
	"time"
)

// WindowQuery selects messages for a chat with optional filters. Stores
// return matches ordered by timestamp ascending.
type WindowQuery struct {
	ChatID    ChatID
	Since     time.Time
	Origin    *Origin
	Processed *bool
}

// MessageStore defines persistence for the append-only chat log.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
	MessagesSince(ctx context.Context, q WindowQuery) ([]*Message, error)
	// MarkProcessed is idempotent: marking an already-processed message
	// again is not an error.
	MarkProcessed(ctx context.Context, ids []MessageID) error
}

// ReminderStore defines persistence for reminder records and their
// lifecycle transitions. All mutations are single-record and atomic.
type ReminderStore interface {
	CreateReminder(ctx context.Context, r *Reminder) error
	GetReminder(ctx context.Context, id ReminderID) (*Reminder, error)
	// MarkTerminal moves a pending reminder to sent (success) or failed,
	// recording the attempt time and, on failure, the reason. Called
	// exactly once per reminder, at delivery time.
	MarkTerminal(ctx context.Context, id ReminderID, success bool, errMsg *string) error
	// MarkCancelled moves a pending reminder to cancelled. Returns
	// ErrReminderNotPending if the reminder already reached a terminal state.
	MarkCancelled(ctx context.Context, id ReminderID) error
	ListRemindersByChat(ctx context.Context, chatID ChatID) ([]*Reminder, error)
	ListPendingReminders(ctx context.Context) ([]*Reminder, error)
}

// Summarizer compresses a message window into a short natural-language
// summary (~100 chars) that bounds classification and extraction input.
type Summarizer interface {
	Summarize(ctx context.Context, messages []*Message, now time.Time) (string, error)
}

// Classifier assigns exactly one intent label to a summary.
type Classifier interface {
	Classify(ctx context.Context, summary string) (Intent, error)
}

// Extractor reads a reminder request out of a summary. Relative and
// absolute natural-language times are resolved against now, never against
// message timestamps.
type Extractor interface {
	Extract(ctx context.Context, summary string, now time.Time) (Extraction, error)
}

// Replier generates a conversational answer from a summary.
type Replier interface {
	Reply(ctx context.Context, summary string) (string, error)
}

// Renderer restyles a stored reminder message into the outbound text sent
// at trigger time. Pure with respect to stored state.
type Renderer interface {
	Render(ctx context.Context, message string) (string, error)
}

// Messenger sends an outbound text to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID ChatID, text string) error
}

// Scheduler registers one-shot, time-triggered callbacks keyed by reminder
// id. Scheduling twice with the same id replaces the prior registration, so
// there is never more than one pending fire per id.
type Scheduler interface {
	ScheduleAt(id ReminderID, when time.Time, fn func(ctx context.Context))
	Cancel(id ReminderID) bool
}

package domain

import "time"

type ChatID string
type MessageID string
type ReminderID string

// Origin says who wrote a message in the chat timeline.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// Intent is the outcome of classifying a conversation summary.
type Intent string

const (
	IntentReminder     Intent = "reminder"
	IntentConversation Intent = "conversation"
)

// ReminderStatus is the lifecycle state of a reminder.
type ReminderStatus string

const (
	StatusPending   ReminderStatus = "pending"
	StatusSent      ReminderStatus = "sent"
	StatusFailed    ReminderStatus = "failed"
	StatusCancelled ReminderStatus = "cancelled"
)

// ScheduleTimeLayout is the wire format for schedule times ("YYYY-MM-DD HH:MM"),
// always interpreted in the configured timezone.
const ScheduleTimeLayout = "2006-01-02 15:04"

type Timestamp = time.Time

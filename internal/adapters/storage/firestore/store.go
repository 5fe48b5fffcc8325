package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
)

// Store persists the chat log and the reminders in Firestore. One store,
// implements both the MessageStore and the ReminderStore port.
type Store struct {
	client *firestore.Client
}

func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) messagesCol() *firestore.CollectionRef {
	return s.client.Collection("messages")
}

func (s *Store) messageDoc(id domain.MessageID) *firestore.DocumentRef {
	return s.messagesCol().Doc(string(id))
}

func (s *Store) remindersCol() *firestore.CollectionRef {
	return s.client.Collection("reminders")
}

func (s *Store) reminderDoc(id domain.ReminderID) *firestore.DocumentRef {
	return s.remindersCol().Doc(string(id))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type messageDoc struct {
	ChatID    string    `firestore:"chat_id"`
	Text      string    `firestore:"text"`
	Origin    string    `firestore:"origin"`
	Timestamp time.Time `firestore:"timestamp"`
	Processed bool      `firestore:"processed"`
}

type reminderDoc struct {
	ChatID       string     `firestore:"chat_id"`
	Message      string     `firestore:"message"`
	ScheduleTime time.Time  `firestore:"schedule_time"`
	Status       string     `firestore:"status"`
	CreatedAt    time.Time  `firestore:"created_at"`
	LastAttempt  *time.Time `firestore:"last_attempt"`
	Error        *string    `firestore:"error"`
}

func (d *reminderDoc) toDomain(id domain.ReminderID) *domain.Reminder {
	return &domain.Reminder{
		ID:           id,
		ChatID:       domain.ChatID(d.ChatID),
		Message:      d.Message,
		ScheduleTime: d.ScheduleTime,
		Status:       domain.ReminderStatus(d.Status),
		CreatedAt:    d.CreatedAt,
		LastAttempt:  d.LastAttempt,
		Error:        d.Error,
	}
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	doc := messageDoc{
		ChatID:    string(msg.ChatID),
		Text:      msg.Text,
		Origin:    string(msg.Origin),
		Timestamp: msg.Timestamp,
		Processed: msg.Processed,
	}

	if _, err := s.messageDoc(msg.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

func (s *Store) MessagesSince(ctx context.Context, q domain.WindowQuery) ([]*domain.Message, error) {
	query := s.messagesCol().
		Where("chat_id", "==", string(q.ChatID)).
		Where("timestamp", ">=", q.Since)
	if q.Origin != nil {
		query = query.Where("origin", "==", string(*q.Origin))
	}
	if q.Processed != nil {
		query = query.Where("processed", "==", *q.Processed)
	}
	query = query.OrderBy("timestamp", firestore.Asc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore MessagesSince: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:        domain.MessageID(snap.Ref.ID),
			ChatID:    domain.ChatID(doc.ChatID),
			Text:      doc.Text,
			Origin:    domain.Origin(doc.Origin),
			Timestamp: doc.Timestamp,
			Processed: doc.Processed,
		})
	}
	return out, nil
}

func (s *Store) MarkProcessed(ctx context.Context, ids []domain.MessageID) error {
	// Single-field update per message; marking twice is a no-op rewrite.
	for _, id := range ids {
		_, err := s.messageDoc(id).Update(ctx, []firestore.Update{
			{Path: "processed", Value: true},
		})
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return domain.ErrMessageNotFound
			}
			return fmt.Errorf("firestore MarkProcessed: %w", err)
		}
	}
	return nil
}

// ─────────────────────────────────────────
// ReminderStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateReminder(ctx context.Context, r *domain.Reminder) error {
	doc := reminderDoc{
		ChatID:       string(r.ChatID),
		Message:      r.Message,
		ScheduleTime: r.ScheduleTime,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
		LastAttempt:  r.LastAttempt,
		Error:        r.Error,
	}

	if _, err := s.reminderDoc(r.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateReminder: %w", err)
	}
	return nil
}

func (s *Store) GetReminder(ctx context.Context, id domain.ReminderID) (*domain.Reminder, error) {
	snap, err := s.reminderDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrReminderNotFound
		}
		return nil, fmt.Errorf("firestore GetReminder: %w", err)
	}

	var doc reminderDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetReminder decode: %w", err)
	}
	return doc.toDomain(id), nil
}

func (s *Store) MarkTerminal(ctx context.Context, id domain.ReminderID, success bool, errMsg *string) error {
	newStatus := domain.StatusFailed
	if success {
		newStatus = domain.StatusSent
		errMsg = nil
	}
	return s.transition(ctx, id, newStatus, errMsg, true)
}

func (s *Store) MarkCancelled(ctx context.Context, id domain.ReminderID) error {
	return s.transition(ctx, id, domain.StatusCancelled, nil, false)
}

// transition performs the pending → terminal move atomically, so two
// concurrent writers can never both flip the same reminder.
func (s *Store) transition(ctx context.Context, id domain.ReminderID, to domain.ReminderStatus, errMsg *string, recordAttempt bool) error {
	ref := s.reminderDoc(id)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return domain.ErrReminderNotFound
			}
			return err
		}

		var doc reminderDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode reminderDoc: %w", err)
		}
		if domain.ReminderStatus(doc.Status) != domain.StatusPending {
			return domain.ErrReminderNotPending
		}

		updates := []firestore.Update{
			{Path: "status", Value: string(to)},
		}
		if recordAttempt {
			updates = append(updates,
				firestore.Update{Path: "last_attempt", Value: time.Now()},
				firestore.Update{Path: "error", Value: errMsg},
			)
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		if err == domain.ErrReminderNotFound || err == domain.ErrReminderNotPending {
			return err
		}
		return fmt.Errorf("firestore reminder transition: %w", err)
	}
	return nil
}

func (s *Store) ListRemindersByChat(ctx context.Context, chatID domain.ChatID) ([]*domain.Reminder, error) {
	q := s.remindersCol().
		Where("chat_id", "==", string(chatID)).
		OrderBy("schedule_time", firestore.Asc)
	return s.listReminders(ctx, q, "ListRemindersByChat")
}

func (s *Store) ListPendingReminders(ctx context.Context) ([]*domain.Reminder, error) {
	q := s.remindersCol().
		Where("status", "==", string(domain.StatusPending)).
		OrderBy("schedule_time", firestore.Asc)
	return s.listReminders(ctx, q, "ListPendingReminders")
}

func (s *Store) listReminders(ctx context.Context, q firestore.Query, op string) ([]*domain.Reminder, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Reminder
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore %s: %w", op, err)
		}

		var doc reminderDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode reminderDoc: %w", err)
		}
		out = append(out, doc.toDomain(domain.ReminderID(snap.Ref.ID)))
	}
	return out, nil
}

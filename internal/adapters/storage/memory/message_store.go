package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
)

type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.ChatID][]*domain.Message
	byID     map[domain.MessageID]*domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.ChatID][]*domain.Message),
		byID:     make(map[domain.MessageID]*domain.Message),
	}
}

func (s *MessageStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *msg
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], &copy)
	s.byID[msg.ID] = &copy
	return nil
}

func (s *MessageStore) MessagesSince(ctx context.Context, q domain.WindowQuery) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Message
	for _, m := range s.messages[q.ChatID] {
		if m.Timestamp.Before(q.Since) {
			continue
		}
		if q.Origin != nil && m.Origin != *q.Origin {
			continue
		}
		if q.Processed != nil && m.Processed != *q.Processed {
			continue
		}
		copy := *m
		out = append(out, &copy)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MessageStore) MarkProcessed(ctx context.Context, ids []domain.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		m, ok := s.byID[id]
		if !ok {
			return domain.ErrMessageNotFound
		}
		// Marking an already-processed message again is a no-op.
		m.Processed = true
	}
	return nil
}

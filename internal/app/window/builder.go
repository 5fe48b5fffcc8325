// Package window selects the time-bounded subset of a chat's stored
// messages used as conversational context.
package window

import (
	"context"
	"time"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
)

// Lookback is the fixed horizon of the context window. It is always
// applied relative to "now" at query time, never to insertion time, so a
// single request sees one deterministic window.
const Lookback = 30 * time.Minute

type Builder struct {
	messages domain.MessageStore
}

func NewBuilder(messages domain.MessageStore) *Builder {
	return &Builder{messages: messages}
}

// UnprocessedUserWindow returns the unprocessed user messages of the last
// 30 minutes, oldest first. This is the classification input: text that
// already produced a reminder must not be re-classified, and the
// assistant's own turns carry no user intent.
func (b *Builder) UnprocessedUserWindow(ctx context.Context, chatID domain.ChatID, now time.Time) ([]*domain.Message, error) {
	origin := domain.OriginUser
	processed := false
	return b.messages.MessagesSince(ctx, domain.WindowQuery{
		ChatID:    chatID,
		Since:     now.Add(-Lookback),
		Origin:    &origin,
		Processed: &processed,
	})
}

// FullWindow returns every message of the last 30 minutes regardless of
// origin or processed state. Conversational replies use it so the
// assistant keeps continuity with its own prior turns.
func (b *Builder) FullWindow(ctx context.Context, chatID domain.ChatID, now time.Time) ([]*domain.Message, error) {
	return b.messages.MessagesSince(ctx, domain.WindowQuery{
		ChatID: chatID,
		Since:  now.Add(-Lookback),
	})
}

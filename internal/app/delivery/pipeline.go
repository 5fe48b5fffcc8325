// Package delivery runs the trigger-time pipeline of a due reminder:
// fetch → render → send with retry → terminal status write.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/observability"
)

const (
	maxSendAttempts = 3
	retryDelay      = 2 * time.Second
)

type Pipeline struct {
	store     domain.ReminderStore
	renderer  domain.Renderer
	messenger domain.Messenger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewPipeline(store domain.ReminderStore, renderer domain.Renderer, messenger domain.Messenger) *Pipeline {
	return &Pipeline{
		store:     store,
		renderer:  renderer,
		messenger: messenger,
		sleep:     time.Sleep,
	}
}

// Deliver handles one fired job. The reminder is re-fetched by id so a job
// firing for a record that no longer exists is a no-op. Whatever happens
// after the fetch, the reminder ends in exactly one terminal state.
func (p *Pipeline) Deliver(ctx context.Context, id domain.ReminderID) {
	log := observability.LoggerFromContext(ctx).With("reminder_id", id)
	log.Info("reminder triggered")

	reminder, err := p.store.GetReminder(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrReminderNotFound) {
			log.Warn("triggered reminder no longer exists")
			return
		}
		log.Error("failed to fetch triggered reminder", "error", err)
		return
	}
	if reminder.Terminal() {
		log.Warn("triggered reminder already terminal", "status", reminder.Status)
		return
	}

	text, err := p.renderer.Render(ctx, reminder.Message)
	if err != nil {
		// A render failure is terminal for this attempt: nothing is sent.
		log.Error("failed to render reminder", "error", err)
		p.finish(ctx, id, false, fmt.Sprintf("render: %v", err))
		return
	}

	if err := p.sendWithRetry(ctx, reminder.ChatID, text); err != nil {
		log.Error("reminder delivery exhausted retries", "error", err)
		p.finish(ctx, id, false, fmt.Sprintf("send: %v", err))
		return
	}

	log.Info("reminder delivered")
	p.finish(ctx, id, true, "")
}

func (p *Pipeline) finish(ctx context.Context, id domain.ReminderID, success bool, reason string) {
	var errMsg *string
	if !success {
		errMsg = &reason
	}
	if err := p.store.MarkTerminal(ctx, id, success, errMsg); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to write reminder outcome",
			"reminder_id", id,
			"error", err,
		)
	}
}

// sendWithRetry attempts the outbound send up to 3 times with a fixed 2s
// delay. The first success short-circuits; exhaustion returns the last error.
func (p *Pipeline) sendWithRetry(ctx context.Context, chatID domain.ChatID, text string) error {
	log := observability.LoggerFromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		lastErr = p.messenger.Send(ctx, chatID, text)
		if lastErr == nil {
			return nil
		}
		log.Warn("send attempt failed",
			"attempt", attempt,
			"max_attempts", maxSendAttempts,
			"error", lastErr,
		)
		if attempt < maxSendAttempts {
			p.sleep(retryDelay)
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxSendAttempts, lastErr)
}

// Package assistant orchestrates one conversational turn: store the
// inbound message, build the context window, summarize, classify and
// either answer conversationally or walk the reminder decision table.
package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/reminders"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/window"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/observability"
)

// Replies sent back to the user. The assistant speaks Spanish.
const (
	ReplyAskBoth    = "Mmm... ¿Qué mensaje quieres que te recuerde y en qué fecha y hora?"
	ReplyAskMessage = "Mmm... ¿Qué mensaje quieres que te recuerde?"
	ReplyAskTime    = "Mmm... ¿En qué fecha y hora quieres que te lo recuerde?"
	ReplyAskFuture  = "Mmm... esa fecha ya ha pasado. ¿Para cuándo quieres el recordatorio?"

	GenericErrorReply = "Ups, parece que he tenido un fallo. ¿Que me decías?"
)

func confirmationReply(scheduleTime string) string {
	return fmt.Sprintf("¡Perfecto! Te he programado un recordatorio para el %s", scheduleTime)
}

type Service struct {
	messages   domain.MessageStore
	window     *window.Builder
	summarizer domain.Summarizer
	classifier domain.Classifier
	extractor  domain.Extractor
	replier    domain.Replier
	messenger  domain.Messenger
	reminders  *reminders.Service

	loc *time.Location
	now func() time.Time
}

// Option tweaks service construction.
type Option func(*Service)

// WithClock replaces the wall clock, pinning "now" in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	messages domain.MessageStore,
	winBuilder *window.Builder,
	summarizer domain.Summarizer,
	classifier domain.Classifier,
	extractor domain.Extractor,
	replier domain.Replier,
	messenger domain.Messenger,
	remindersSvc *reminders.Service,
	loc *time.Location,
	opts ...Option,
) *Service {
	if loc == nil {
		loc = time.Local
	}
	svc := &Service{
		messages:   messages,
		window:     winBuilder,
		summarizer: summarizer,
		classifier: classifier,
		extractor:  extractor,
		replier:    replier,
		messenger:  messenger,
		reminders:  remindersSvc,
		loc:        loc,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// HandleTurn processes one inbound message end to end. Model-call failures
// are not retried: the user gets the generic apology and can simply
// re-send. The returned error is for logging only, the user never sees it.
func (s *Service) HandleTurn(ctx context.Context, chatID domain.ChatID, text string) error {
	log := observability.LoggerFromContext(ctx).With("chat_id", chatID)
	log.Info("handling turn", "text", text)

	// One "now" per turn keeps the window boundary deterministic for the
	// whole request.
	now := s.now().In(s.loc)

	if err := s.append(ctx, chatID, text, domain.OriginUser, now); err != nil {
		log.Error("failed to store inbound message", "error", err)
		s.Apologize(ctx, chatID)
		return err
	}

	win, err := s.window.UnprocessedUserWindow(ctx, chatID, now)
	if err != nil {
		log.Error("failed to build context window", "error", err)
		s.Apologize(ctx, chatID)
		return err
	}

	summary, err := s.summarizer.Summarize(ctx, win, now)
	if err != nil {
		log.Error("failed to summarize window", "error", err)
		s.Apologize(ctx, chatID)
		return err
	}

	// An empty window summarizes to nothing; that is a conversation, not
	// a classification failure.
	intent := domain.IntentConversation
	if len(win) > 0 {
		intent, err = s.classifier.Classify(ctx, summary)
		if err != nil {
			log.Error("failed to classify intent", "error", err)
			s.Apologize(ctx, chatID)
			return err
		}
	}
	log.Info("intent classified", "intent", intent, "summary", summary)

	switch intent {
	case domain.IntentReminder:
		return s.handleReminder(ctx, chatID, win, summary, now)
	default:
		return s.handleConversation(ctx, chatID, now)
	}
}

// handleConversation replies from the full window, assistant turns
// included, so the answer keeps continuity with what the bot already said.
func (s *Service) handleConversation(ctx context.Context, chatID domain.ChatID, now time.Time) error {
	log := observability.LoggerFromContext(ctx).With("chat_id", chatID)

	full, err := s.window.FullWindow(ctx, chatID, now)
	if err != nil {
		log.Error("failed to build full window", "error", err)
		s.Apologize(ctx, chatID)
		return err
	}

	summary, err := s.summarizer.Summarize(ctx, full, now)
	if err != nil {
		log.Error("failed to summarize full window", "error", err)
		s.Apologize(ctx, chatID)
		return err
	}

	reply, err := s.replier.Reply(ctx, summary)
	if err != nil {
		log.Error("failed to generate reply", "error", err)
		s.Apologize(ctx, chatID)
		return err
	}

	return s.send(ctx, chatID, reply, now)
}

// handleReminder runs one extraction attempt and branches on the result.
// Partial extractions are not errors: the matching clarification question
// goes out and the window stays unprocessed for the next turn.
func (s *Service) handleReminder(
	ctx context.Context,
	chatID domain.ChatID,
	win []*domain.Message,
	summary string,
	now time.Time,
) error {
	log := observability.LoggerFromContext(ctx).With("chat_id", chatID)

	extraction, err := s.extractor.Extract(ctx, summary, now)
	if err != nil {
		log.Error("failed to extract reminder", "error", err)
		s.Apologize(ctx, chatID)
		return err
	}

	switch {
	case extraction.Message == nil && extraction.ScheduleTime == nil:
		return s.send(ctx, chatID, ReplyAskBoth, now)
	case extraction.Message == nil:
		return s.send(ctx, chatID, ReplyAskMessage, now)
	case extraction.ScheduleTime == nil:
		return s.send(ctx, chatID, ReplyAskTime, now)
	}

	// The model is asked for a future time, but that is a prompt, not a
	// guarantee. Reject anything stale or unparseable and ask again.
	scheduleTime, err := time.ParseInLocation(domain.ScheduleTimeLayout, *extraction.ScheduleTime, s.loc)
	if err != nil {
		log.Warn("extractor returned unparseable schedule time",
			"schedule_time", *extraction.ScheduleTime,
		)
		return s.send(ctx, chatID, ReplyAskTime, now)
	}
	if !scheduleTime.After(now) {
		log.Warn("extractor returned non-future schedule time",
			"schedule_time", *extraction.ScheduleTime,
		)
		return s.send(ctx, chatID, ReplyAskFuture, now)
	}

	contributing := make([]domain.MessageID, 0, len(win))
	for _, m := range win {
		contributing = append(contributing, m.ID)
	}

	if _, err := s.reminders.Create(ctx, chatID, *extraction.Message, scheduleTime, contributing); err != nil {
		log.Error("failed to create reminder", "error", err)
		s.Apologize(ctx, chatID)
		return err
	}

	return s.send(ctx, chatID, confirmationReply(*extraction.ScheduleTime), now)
}

// Apologize sends the generic failure reply. Best effort: if even this
// send fails there is nothing left to do but log it.
func (s *Service) Apologize(ctx context.Context, chatID domain.ChatID) {
	if err := s.messenger.Send(ctx, chatID, GenericErrorReply); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to send apology",
			"chat_id", chatID,
			"error", err,
		)
	}
}

// send delivers an outbound reply and appends it to the chat log.
func (s *Service) send(ctx context.Context, chatID domain.ChatID, text string, now time.Time) error {
	if err := s.messenger.Send(ctx, chatID, text); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to send reply",
			"chat_id", chatID,
			"error", err,
		)
		return err
	}
	return s.append(ctx, chatID, text, domain.OriginAssistant, now)
}

func (s *Service) append(ctx context.Context, chatID domain.ChatID, text string, origin domain.Origin, ts time.Time) error {
	return s.messages.AppendMessage(ctx, &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		ChatID:    chatID,
		Text:      text,
		Origin:    origin,
		Timestamp: ts,
		Processed: false,
	})
}

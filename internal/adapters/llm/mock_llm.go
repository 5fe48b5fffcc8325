package llm

import (
	"context"
	"strings"
	"time"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
)

// MockLLM implements every model port without network calls. The defaults
// give the bot a usable local mode; tests override the Fn hooks to pin
// exact behavior.
type MockLLM struct {
	SummarizeFn func(ctx context.Context, messages []*domain.Message, now time.Time) (string, error)
	ClassifyFn  func(ctx context.Context, summary string) (domain.Intent, error)
	ExtractFn   func(ctx context.Context, summary string, now time.Time) (domain.Extraction, error)
	ReplyFn     func(ctx context.Context, summary string) (string, error)
	RenderFn    func(ctx context.Context, message string) (string, error)
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Summarize(ctx context.Context, messages []*domain.Message, now time.Time) (string, error) {
	if m.SummarizeFn != nil {
		return m.SummarizeFn(ctx, messages, now)
	}
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, msg.Text)
	}
	summary := strings.Join(parts, ". ")
	if len(summary) > 100 {
		summary = summary[:100]
	}
	return summary, nil
}

func (m *MockLLM) Classify(ctx context.Context, summary string) (domain.Intent, error) {
	if m.ClassifyFn != nil {
		return m.ClassifyFn(ctx, summary)
	}
	lower := strings.ToLower(summary)
	if strings.Contains(lower, "recuérdame") || strings.Contains(lower, "recuerdame") {
		return domain.IntentReminder, nil
	}
	return domain.IntentConversation, nil
}

func (m *MockLLM) Extract(ctx context.Context, summary string, now time.Time) (domain.Extraction, error) {
	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, summary, now)
	}
	return domain.Extraction{}, nil
}

func (m *MockLLM) Reply(ctx context.Context, summary string) (string, error) {
	if m.ReplyFn != nil {
		return m.ReplyFn(ctx, summary)
	}
	return "Te escucho. Cuéntame un poco más.", nil
}

func (m *MockLLM) Render(ctx context.Context, message string) (string, error) {
	if m.RenderFn != nil {
		return m.RenderFn(ctx, message)
	}
	return "¡Oye! Me pediste que te recordara: " + message, nil
}

package observability

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyChatID    ctxKey = "chat_id"
)

// basic global logger, JSON to stdout.
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func Logger() *slog.Logger {
	return logger
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return logger.With(kv...)
}

// WithRequestID stores a request_id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// WithChatID stores the chat_id a background turn is working for, so logs
// emitted off the request goroutine stay correlated.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, ctxKeyChatID, chatID)
}

// LoggerFromContext adds request_id and chat_id if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	log := logger
	if reqID, _ := ctx.Value(ctxKeyRequestID).(string); reqID != "" {
		log = log.With("request_id", reqID)
	}
	if chatID, _ := ctx.Value(ctxKeyChatID).(string); chatID != "" {
		log = log.With("chat_id", chatID)
	}
	return log
}

package httpadapter

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/observability"
)

// withRequestID tags every request (and its logs) with a fresh id.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithRequestID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withLogging wraps a handler and logs every request.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		observability.LoggerFromContext(r.Context()).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

// chainMiddlewares applies multiple middlewares in order.
func chainMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}

// requestScopedContext copies the request id into a fresh background
// context, so values survive after the HTTP response is written while the
// request's own context gets cancelled.
func requestScopedContext(reqCtx context.Context) context.Context {
	return context.WithoutCancel(reqCtx)
}

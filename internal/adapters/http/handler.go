package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/assistant"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/reminders"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/observability"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/worker"
)

type Server struct {
	assistant *assistant.Service
	reminders *reminders.Service
	pool      *worker.Pool
	loc       *time.Location
	now       func() time.Time

	defaultChatID domain.ChatID
}

type Option func(*Server)

// WithDefaultChatID sets the fallback destination for reminders scheduled
// through the API without a chat_id.
func WithDefaultChatID(id string) Option {
	return func(s *Server) { s.defaultChatID = domain.ChatID(id) }
}

func NewServer(
	assistantSvc *assistant.Service,
	remindersSvc *reminders.Service,
	pool *worker.Pool,
	loc *time.Location,
	opts ...Option,
) http.Handler {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		assistant: assistantSvc,
		reminders: remindersSvc,
		pool:      pool,
		loc:       loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)

	// /webhook → inbound Telegram update (POST)
	mux.HandleFunc("/webhook", s.handleWebhook)

	// /reminders      → POST: schedule directly, GET: list by chat
	// /reminders/{id} → DELETE: cancel
	mux.HandleFunc("/reminders", s.handleReminders)
	mux.HandleFunc("/reminders/", s.handleReminderWithID)

	return chainMiddlewares(mux, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type webhookRequest struct {
	Message struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// statusResponse is the fixed webhook envelope. The transport always
// answers 200; failures surface in the status field and as a Telegram
// apology, never as an HTTP error code.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type scheduleReminderRequest struct {
	ChatID       string `json:"chat_id"`
	Message      string `json:"message"`
	ScheduleTime string `json:"schedule_time"`
}

type reminderResponse struct {
	ID           string     `json:"id"`
	ChatID       string     `json:"chat_id"`
	Message      string     `json:"message"`
	ScheduleTime string     `json:"schedule_time"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAttempt  *time.Time `json:"last_attempt,omitempty"`
	Error        *string    `json:"error,omitempty"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	log := observability.LoggerFromContext(r.Context())

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("malformed webhook payload", "error", err)
		writeJSON(w, http.StatusOK, statusResponse{Status: "error", Message: "Error handling message"})
		return
	}
	if req.Message.Chat.ID == 0 || strings.TrimSpace(req.Message.Text) == "" {
		log.Warn("webhook payload missing chat id or text")
		writeJSON(w, http.StatusOK, statusResponse{Status: "error", Message: "Error handling message"})
		return
	}

	chatID := domain.ChatID(strconv.FormatInt(req.Message.Chat.ID, 10))
	text := req.Message.Text

	// The response returns as soon as the turn is enqueued; the LLM
	// round-trips happen on the worker pool.
	bgCtx := observability.WithChatID(requestScopedContext(r.Context()), string(chatID))
	ok := s.pool.TrySubmit(func(context.Context) {
		_ = s.assistant.HandleTurn(bgCtx, chatID, text)
	})
	if !ok {
		log.Error("turn rejected, worker queue full", "chat_id", chatID)
		s.assistant.Apologize(r.Context(), chatID)
		writeJSON(w, http.StatusOK, statusResponse{Status: "error", Message: "Error handling message"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Message handled successfully"})
}

// /reminders
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleScheduleReminder(w, r)
	case http.MethodGet:
		s.handleListReminders(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /reminders/{id}
func (s *Server) handleReminderWithID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/reminders/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodDelete:
		s.handleCancelReminder(w, r, domain.ReminderID(id))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleScheduleReminder(w http.ResponseWriter, r *http.Request) {
	var req scheduleReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, statusResponse{Status: "error", Message: "invalid JSON body"})
		return
	}
	chatID := domain.ChatID(req.ChatID)
	if chatID == "" {
		chatID = s.defaultChatID
	}
	if chatID == "" || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusOK, statusResponse{Status: "error", Message: "chat_id and message are required"})
		return
	}

	scheduleTime, err := time.ParseInLocation(domain.ScheduleTimeLayout, req.ScheduleTime, s.loc)
	if err != nil {
		writeJSON(w, http.StatusOK, statusResponse{Status: "error", Message: "Invalid format. Use 'YYYY-MM-DD HH:MM'"})
		return
	}
	if !scheduleTime.After(s.now().In(s.loc)) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "error", Message: "schedule_time must be in the future"})
		return
	}

	if _, err := s.reminders.Create(r.Context(), chatID, req.Message, scheduleTime, nil); err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Reminder programmed for " + req.ScheduleTime,
	})
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		badRequest(w, "chat_id is required")
		return
	}

	list, err := s.reminders.List(r.Context(), domain.ChatID(chatID))
	if err != nil {
		internalError(w, err)
		return
	}

	out := make([]reminderResponse, 0, len(list))
	for _, rem := range list {
		out = append(out, toReminderResponse(rem, s.loc))
	}
	writeJSON(w, http.StatusOK, map[string][]reminderResponse{"reminders": out})
}

func (s *Server) handleCancelReminder(w http.ResponseWriter, r *http.Request, id domain.ReminderID) {
	err := s.reminders.Cancel(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Reminder cancelled"})
	case errors.Is(err, domain.ErrReminderNotFound):
		http.NotFound(w, r)
	case errors.Is(err, domain.ErrReminderNotPending):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "reminder is not pending"})
	default:
		internalError(w, err)
	}
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func toReminderResponse(r *domain.Reminder, loc *time.Location) reminderResponse {
	return reminderResponse{
		ID:           string(r.ID),
		ChatID:       string(r.ChatID),
		Message:      r.Message,
		ScheduleTime: r.ScheduleTime.In(loc).Format(domain.ScheduleTimeLayout),
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
		LastAttempt:  r.LastAttempt,
		Error:        r.Error,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}

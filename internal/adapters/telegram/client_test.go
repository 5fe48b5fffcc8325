package telegram_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwilliams96/hands-on-telegram-bot/internal/adapters/telegram"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody struct {
		ChatID string `json:"chat_id"`
		Text   string `json:"text"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	c := telegram.NewClient("test-token", telegram.WithBaseURL(srv.URL))
	if err := c.Send(context.Background(), "123456", "hola"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotBody.ChatID != "123456" || gotBody.Text != "hola" {
		t.Fatalf("unexpected payload: %+v", gotBody)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"description": "Bad Request: chat not found",
		})
	}))
	defer srv.Close()

	c := telegram.NewClient("test-token", telegram.WithBaseURL(srv.URL))
	err := c.Send(context.Background(), "123456", "hola")
	if err == nil {
		t.Fatal("expected an error for ok=false response")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("error should carry the API description, got: %v", err)
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/fwilliams96/hands-on-telegram-bot/internal/adapters/http"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/adapters/llm"
	firestorestore "github.com/fwilliams96/hands-on-telegram-bot/internal/adapters/storage/firestore"
	memstore "github.com/fwilliams96/hands-on-telegram-bot/internal/adapters/storage/memory"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/adapters/telegram"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/assistant"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/delivery"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/reminders"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/app/window"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/config"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/domain"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/observability"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/scheduler"
	"github.com/fwilliams96/hands-on-telegram-bot/internal/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "remindbot",
		Short: "Telegram reminder and conversation assistant",
	}
	root.PersistentFlags().String("config", "", "Config file path (optional).")
	root.AddCommand(newServeCmd(root))
	return root
}

func newServeCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := root.PersistentFlags().GetString("config")
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := observability.Logger()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	// Storage: Firestore or Memory. One store, implements both ports.
	var (
		messageStore  domain.MessageStore
		reminderStore domain.ReminderStore
	)
	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return fmt.Errorf("init firestore store: %w", err)
		}
		defer fsStore.Close()
		messageStore = fsStore
		reminderStore = fsStore
	default:
		log.Info("using in-memory storage")
		messageStore = memstore.NewMessageStore()
		reminderStore = memstore.NewReminderStore()
	}

	// Model ports: mock for local dev, Gemini otherwise.
	var model interface {
		domain.Summarizer
		domain.Classifier
		domain.Extractor
		domain.Replier
		domain.Renderer
	}
	if cfg.UseMockLLM {
		log.Info("using mock LLM client")
		model = llm.NewMockLLM()
	} else {
		log.Info("using Gemini LLM client", "model", cfg.ModelName)
		model, err = llm.NewGeminiClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			return fmt.Errorf("init Gemini client: %w", err)
		}
	}

	messenger := telegram.NewClient(cfg.TelegramBotToken)

	sched := scheduler.New()
	pipeline := delivery.NewPipeline(reminderStore, model, messenger)
	reminderSvc := reminders.NewService(reminderStore, messageStore, sched, pipeline)

	// Rehydrate the job table before accepting traffic: future pending
	// reminders get their jobs back, missed ones are failed.
	if err := reminderSvc.ReloadPending(ctx); err != nil {
		return fmt.Errorf("reload pending reminders: %w", err)
	}

	assistantSvc := assistant.NewService(
		messageStore,
		window.NewBuilder(messageStore),
		model, model, model, model,
		messenger,
		reminderSvc,
		loc,
	)

	pool := worker.NewPool(cfg.WorkerCount, cfg.QueueSize)

	handler := httpadapter.NewServer(assistantSvc, reminderSvc, pool, loc,
		httpadapter.WithDefaultChatID(cfg.DefaultChatID),
	)
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("remindbot listening", "port", cfg.HTTPPort, "timezone", cfg.Timezone)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Shutdown order: stop accepting requests, drain queued turns, then
	// wait for in-flight reminder jobs.
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	pool.Stop()
	sched.Stop()
	log.Info("shutdown complete")
	return nil
}

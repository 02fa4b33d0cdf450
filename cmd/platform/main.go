// Package main boots the companion HTTP service and wires application dependencies.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/easeaico/companion/internal/chat"
	"github.com/easeaico/companion/internal/config"
	"github.com/easeaico/companion/internal/handler"
	"github.com/easeaico/companion/internal/jobs"
	"github.com/easeaico/companion/internal/memory"
	"github.com/easeaico/companion/internal/models"
	"github.com/easeaico/companion/internal/profile"
	"github.com/easeaico/companion/internal/prompt"
	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	slog.Info("configuration loaded", "provider", cfg.OracleProvider, "chat_model", cfg.ChatModel, "memory_model", cfg.MemoryModel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	chatLLM, err := models.NewLLM(ctx, cfg, cfg.ChatModel)
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}
	memoryLLM, err := models.NewLLM(ctx, cfg, cfg.MemoryModel)
	if err != nil {
		log.Fatalf("failed to create memory model: %v", err)
	}

	var embedder memory.Embedder
	if cfg.GoogleAPIKey != "" {
		e, err := memory.NewGenAIEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			slog.Warn("embeddings disabled", "error", err.Error())
		} else {
			embedder = e
		}
	}

	pool, err := worker.NewPool(worker.Config{
		NumWorkers: uint(max(cfg.WorkerCount, 0)),
		QueueSize:  uint(max(cfg.WorkerQueueSize, 0)),
		Timeout:    time.Minute,
	})
	if err != nil {
		log.Fatalf("failed to start worker pool: %v", err)
	}
	defer pool.Close()

	assembler := memory.NewAssembler(memory.StoreSources(store))
	service := chat.NewService(store, assembler, prompt.NewBuilder(0), chatLLM, pool)
	registry := jobs.NewRegistry(jobs.Deps{
		Store:    store,
		Oracle:   models.NewLLMOracle(memoryLLM, nil),
		Embedder: embedder,
		Config:   cfg,
	})
	if cfg.CronSecret == "" {
		slog.Warn("CRON_SECRET not set, cron endpoints are disabled")
	}

	h := handler.New(handler.Services{
		Chat:          service,
		Inbox:         store.ProactiveMessages,
		Insights:      store.Insights,
		Embedder:      embedder,
		Profiles:      profile.NewService(store),
		Conversations: store.Conversations,
		Messages:      store.Messages,
		Feedback:      store.Feedback,
		Jobs:          registry,
	}, cfg.CronSecret)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("http server failed", "error", err.Error())
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err.Error())
	}
	slog.Info("server stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

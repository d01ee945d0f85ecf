package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chat-memo/note-service/config"
	"github.com/chat-memo/note-service/internal/postgres"
	"github.com/chat-memo/note-service/internal/room"
	"github.com/chat-memo/note-service/internal/service"
	httpx "github.com/chat-memo/note-service/internal/transport/http"
	"github.com/chat-memo/note-service/internal/transport/ws"
	"github.com/chat-memo/note-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting note-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- repos ---
	noteRepo := postgres.NewNoteRepository(db.Pool)
	msgRepo := postgres.NewMessageRepository(db.Pool)
	tagRepo := postgres.NewTagRepository(db.Pool)

	// --- services ---
	noteSvc := service.NewNoteService(noteRepo, msgRepo, tagRepo)
	tagSvc := service.NewTagService(tagRepo)

	// --- room registry + janitor ---
	registry := room.NewRegistry(postgres.NewNoteStore(noteRepo, msgRepo), room.Options{
		IdleGrace:      cfg.IdleGraceDur(),
		PersistTimeout: cfg.PersistTimeoutDur(),
		MaxMessageLen:  cfg.Room.MaxMessageLen,
	})
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	go registry.Run(janitorCtx)

	// --- WS gateway ---
	wsServer := ws.NewServer(registry, noteSvc, tagSvc, cfg.Room.SendQueue)

	// --- HTTP ---
	handler := httpx.NewHandler(noteSvc, tagSvc, registry, wsServer)
	router := httpx.NewRouter(handler, wsServer, cfg.Admin.Password)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- run ---
	errCh := make(chan error, 1)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopJanitor()
	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}

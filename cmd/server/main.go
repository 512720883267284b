package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"mediframework/internal/api"
	"mediframework/internal/assist"
	"mediframework/internal/chat"
	"mediframework/internal/config"
	"mediframework/internal/llm"
	"mediframework/internal/registry"
	"mediframework/internal/session"
	"mediframework/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(cfg)
	if err != nil {
		log.WithError(err).Fatal("opening storage")
	}
	defer store.Close()

	client, err := newProvider(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("initializing AI provider")
	}
	breaker := llm.NewBreaker(log, client)
	if err := breaker.Probe(ctx); err != nil {
		log.WithError(err).Warn("AI provider probe failed, starting degraded")
		go reprobe(ctx, log, breaker)
	}

	tools := registry.NewTools(log)
	modules := registry.NewModules(log)

	sessions := session.NewStore(log, store, tools, modules, nil, breaker.Available)
	sessions.LoadAll(ctx)

	mux := chat.NewMultiplexer(log, sessions, breaker, cfg.AI.TurnTimeout)
	mux.RehydrateAll(ctx)

	assistSvc := assist.NewService(log, breaker, cfg.AI.AnalysisTimeout)

	server := api.NewServer(log, sessions, mux, assistSvc, tools, modules, breaker.Available)
	if err := server.Start(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout); err != nil {
		log.WithError(err).Fatal("http server")
	}
	log.Info("shutdown complete")
}

// reprobe retries the provider probe until it succeeds, restoring
// availability after a degraded start.
func reprobe(ctx context.Context, log *logrus.Logger, breaker *llm.Breaker) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := breaker.Probe(ctx); err == nil {
				log.Info("AI provider recovered")
				return
			}
		}
	}
}

func openStorage(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemory(), nil
	case "sqlite":
		return storage.NewSQLite(cfg.Storage.SQLitePath)
	case "postgres":
		return storage.NewPostgres(cfg.Storage.PostgresDSN)
	case "redis":
		return storage.NewRedis(cfg.Storage.RedisURL, cfg.Storage.RedisPrefix)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func newProvider(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	switch cfg.AI.Provider {
	case "gemini":
		return llm.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model)
	case "openai":
		return llm.NewOpenAI(cfg.AI.APIKey, cfg.AI.Model)
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
}

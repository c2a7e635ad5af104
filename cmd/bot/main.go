package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/PoluyanbIch/QuizPollBot/internal/config"
	"github.com/PoluyanbIch/QuizPollBot/internal/service"
	"github.com/PoluyanbIch/QuizPollBot/internal/telegram"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger := setupLogger(cfg.Env)

	store := service.NewStore(cfg.StorePath)
	if count, err := store.Count(); err != nil {
		// /deletequestions can still reset the file, so keep running.
		logger.Error("question store unreadable", "path", store.Path(), "error", err)
	} else {
		logger.Info("question store loaded", "path", store.Path(), "questions", count)
	}

	bot, err := telegram.NewBot(cfg, store, logger)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("bot is starting", "env", cfg.Env)
	bot.Start(ctx)
	logger.Info("bot stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

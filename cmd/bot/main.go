package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"rss_sentinel/internal/bot"
	"rss_sentinel/internal/checker"
	"rss_sentinel/internal/config"
	"rss_sentinel/internal/fetcher"
	"rss_sentinel/internal/notifier"
	"rss_sentinel/internal/scheduler"
	"rss_sentinel/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	n := notifier.New(b, store, cfg.AdminUserIDs, log)
	chk := checker.New(store, fetcher.New(http.DefaultClient), n, log)
	sched := scheduler.New(chk, store,
		time.Duration(cfg.RefreshInterval)*time.Minute,
		time.Duration(cfg.HistoryDays)*24*time.Hour,
		log,
	)
	b.SetTrigger(sched)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot",
		"refresh_interval_min", cfg.RefreshInterval,
		"history_days", cfg.HistoryDays,
		"recipients", len(cfg.AdminUserIDs),
	)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

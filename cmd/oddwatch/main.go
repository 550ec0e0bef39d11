package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vodeneev/oddwatch/internal/alertstore"
	"github.com/Vodeneev/oddwatch/internal/api"
	"github.com/Vodeneev/oddwatch/internal/book"
	"github.com/Vodeneev/oddwatch/internal/book/competitora"
	"github.com/Vodeneev/oddwatch/internal/book/competitorb"
	"github.com/Vodeneev/oddwatch/internal/book/primary"
	"github.com/Vodeneev/oddwatch/internal/broadcaster"
	"github.com/Vodeneev/oddwatch/internal/cache"
	"github.com/Vodeneev/oddwatch/internal/coordinator"
	"github.com/Vodeneev/oddwatch/internal/mapper"
	"github.com/Vodeneev/oddwatch/internal/notify"
	"github.com/Vodeneev/oddwatch/internal/pkg/config"
	"github.com/Vodeneev/oddwatch/internal/pkg/logging"
	"github.com/Vodeneev/oddwatch/internal/pkg/models"
	"github.com/Vodeneev/oddwatch/internal/pkg/storage"
	"github.com/Vodeneev/oddwatch/internal/scheduler"
	"github.com/Vodeneev/oddwatch/internal/writequeue"
)

const defaultConfigPath = "configs/production.yaml"

func main() {
	if err := run(); err != nil {
		slog.Error("oddwatch: fatal startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	flag.StringVar(&configPath, "config", configPath, "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.SetupLogger(&cfg.Logging, "oddwatch")
	if err != nil {
		slog.Warn("oddwatch: logging setup failed, continuing with default logger", "error", err)
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("oddwatch: signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	store, err := storage.New(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer store.Close()

	if err := store.SeedSettings(ctx, settingsFromConfig(cfg)); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	oddsCache := cache.New()
	rows, err := store.AllCurrentMarkets(ctx, time.Now().Add(-cfg.Scrape.CacheGraceWindow))
	if err != nil {
		return fmt.Errorf("load current markets for warmup: %w", err)
	}
	oddsCache.Warmup(rows)
	logger.Info("oddwatch: cache warmed", "events", oddsCache.Len())

	mapperInstance := mapper.New()
	if overrides, err := store.LoadMarketOverrides(ctx); err != nil {
		logger.Warn("oddwatch: load market overrides failed, starting with baseline mapping only", "error", err)
	} else {
		mapperInstance.LoadOverrides(overrides)
		logger.Info("oddwatch: market overrides loaded", "count", len(overrides))
	}

	books := map[models.Book]book.Client{
		models.BookPrimary:     primary.New(cfg.Books.Primary, cfg.Books.UserAgent, cfg.Scrape.RequestTimeout),
		models.BookCompetitorA: competitora.New(cfg.Books.CompetitorA, cfg.Scrape.RequestTimeout),
		models.BookCompetitorB: competitorb.New(cfg.Books.CompetitorB, cfg.Scrape.RequestTimeout),
	}

	hub := broadcaster.NewHub()

	var alerts *alertstore.Store
	if cfg.Redis.Addr != "" {
		alerts, err = alertstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("oddwatch: redis cooldown store unavailable, alert cooldown disabled", "error", err)
			alerts = nil
		} else {
			defer alerts.Close()
		}
	}

	var notifier *notify.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		notifier = notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, models.AlertSeverity(cfg.Telegram.MinSeverity))
	}

	writer := writequeue.New(store, oddsCache, alerts, hub, notifier, time.Duration(cfg.Alerts.CooldownMinutes)*time.Minute, 256)
	go func() {
		if err := writer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("oddwatch: write queue stopped unexpectedly", "error", err)
		}
	}()

	coord := coordinator.New(store, mapperInstance, books, writer, oddsCache, logger)
	sched := scheduler.New(store, coord, cfg.Scrape.CleanupInterval, logger)
	sched.Start(ctx)

	go forwardProgress(ctx, sched, hub)

	server := api.NewServer(oddsCache, store, hub, logger)
	addr := fmt.Sprintf(":%d", cfg.Health.Port)
	if err := server.Run(ctx, addr, cfg.Health.ReadHeaderTimeout); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	sched.Stop()
	return nil
}

// forwardProgress republishes scheduler progress on the scrape_progress topic. spec.md
// §4.3 "an enumerable sequence the caller can forward to the Broadcaster".
func forwardProgress(ctx context.Context, sched *scheduler.Scheduler, hub *broadcaster.Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-sched.Progress():
			if !ok {
				return
			}
			hub.Publish("scrape_progress", p)
		}
	}
}

// settingsFromConfig builds the initial Settings row seeded on first run. Later runs read
// the live row from Storage; this value is only used if the table is empty. spec.md §9.
func settingsFromConfig(cfg *config.Config) models.Settings {
	enabled := cfg.EnabledBooksMap()
	return models.Settings{
		ScrapeInterval:    cfg.Scrape.Interval,
		EnabledBooks:      boolMapToBooks(enabled),
		RetentionHorizon:  cfg.Scrape.RetentionHorizon,
		CacheGraceWindow:  cfg.Scrape.CacheGraceWindow,
		BatchSize:         cfg.Scrape.BatchSize,
		AlertsEnabled:     cfg.Alerts.Enabled,
		WarningThreshold:  cfg.Alerts.WarningThreshold,
		ElevatedThreshold: cfg.Alerts.ElevatedThreshold,
		CriticalThreshold: cfg.Alerts.CriticalThreshold,
		AlertCooldown:     time.Duration(cfg.Alerts.CooldownMinutes) * time.Minute,
		LookbackWindow:    time.Duration(cfg.Alerts.LookbackHours) * time.Hour,
	}
}

func boolMapToBooks(m map[string]bool) map[models.Book]bool {
	out := make(map[models.Book]bool, len(m))
	for k, v := range m {
		out[models.Book(k)] = v
	}
	return out
}

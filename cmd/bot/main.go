// Package main contains the entrypoint for the relay bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/edgard/relaybot/internal/bot"
	"github.com/edgard/relaybot/internal/bot/handlers"
	"github.com/edgard/relaybot/internal/bot/tasks"
	"github.com/edgard/relaybot/internal/capture"
	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/filter"
	"github.com/edgard/relaybot/internal/logger"
	"github.com/edgard/relaybot/internal/server"
	"github.com/edgard/relaybot/internal/settings"
	"github.com/edgard/relaybot/internal/telegram"
	"github.com/edgard/relaybot/internal/verify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires all components, blocks until shutdown and returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log, database.WithMessageCacheRetention(cfg.Relay.MessageCacheRetention))

	var captures capture.Store = store
	if cfg.Redis.Enabled {
		client, err := capture.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr, "error", err)
			return 1
		}
		defer client.Close()
		captures = capture.NewRedisStore(client, cfg.Redis.CaptureTTL)
		log.Info("Admin input captures stored in Redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CaptureTTL)
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, cfg.Telegram.APIURL, log)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}
	if cfg.Telegram.RegisterWebhook {
		webhookURL := strings.TrimRight(cfg.Server.PublicURL, "/") + "/"
		if err := telegram.RegisterWebhook(ctx, tg, webhookURL, cfg.Telegram.WebhookSecret, log); err != nil {
			log.Error("Failed to register webhook", "url", webhookURL, "error", err)
			return 1
		}
	}

	router := handlers.NewRouter(handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Settings: settings.NewResolver(store, cfg.Defaults, log),
		Platform: telegram.NewClient(tg, log),
		Captures: captures,
		Matcher:  filter.NewMatcher(cfg.Relay.MaxPatternLength, cfg.Relay.MaxMatchInput, log),
	})
	updateHandler := telegram.Chain(router.Handler(), logger.Recoverer(log), logger.Middleware(log))

	verifier := verify.NewTurnstileVerifier(cfg.Verification.Endpoint, cfg.Verification.SecretKey, cfg.Verification.Timeout, log)
	srv, err := server.NewServer(cfg, log, updateHandler, router, verifier, store)
	if err != nil {
		log.Error("Failed to create HTTP server", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, srv, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}

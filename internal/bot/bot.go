// Package bot orchestrates the lifecycle of the relay bot: the HTTP server
// receiving webhook updates and the maintenance scheduler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Runner is a component that runs until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	server    Runner
	scheduler *Scheduler
}

// NewBot creates the orchestrator over the HTTP server and the scheduler.
func NewBot(logger *slog.Logger, server Runner, scheduler *Scheduler) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		server:    server,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until ctx is cancelled or one of them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting HTTP server...")
		if err := b.server.Run(gCtx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		if gCtx.Err() == nil {
			b.logger.Warn("HTTP server stopped unexpectedly without context cancellation.")
			return fmt.Errorf("http server stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if b.scheduler == nil {
			return nil
		}
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

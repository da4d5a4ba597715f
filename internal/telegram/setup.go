// Package telegram wraps the go-telegram/bot library: bot construction,
// webhook registration, the update handler chain and the Client used to talk
// to the Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandlerFunc processes a single update.
type HandlerFunc func(ctx context.Context, update *models.Update)

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
// apiURL overrides the Bot API server when set.
func NewTelegramBot(token, apiURL string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	if apiURL != "" {
		opts = append(opts, bot.WithServerURL(apiURL))
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	prefix := token
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	log.Info("Telegram bot instance created successfully", "token_prefix", prefix+"...")
	return b, nil
}

// RegisterWebhook points the Bot API at url. A non-empty secret is sent back
// by the Bot API with every update.
func RegisterWebhook(ctx context.Context, b *bot.Bot, url, secret string, logger *slog.Logger) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	params := &bot.SetWebhookParams{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message", "edited_message", "callback_query"},
	}
	if _, err := b.SetWebhook(ctx, params); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "Webhook registered", "url", url)
	}
	return nil
}

// Chain wraps handler with mw. The first middleware in the slice is the outermost.
func Chain(handler HandlerFunc, mw ...Middleware) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

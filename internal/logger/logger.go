// Package logger provides structured logging for the relay bot.
// It uses Go's slog package for logging with configurable levels and formats.
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/telegram"
)

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Middleware creates a logging middleware for the update pipeline.
// It logs the kind, origin and duration of every update.
func Middleware(log *slog.Logger) telegram.Middleware {
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(ctx context.Context, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With(
				"update_id", update.ID,
				"start_time", startTime.Format(time.RFC3339),
			)

			var updateType string
			switch {
			case update.Message != nil:
				updateType = "message"
				logEntry = logEntry.With(messageAttrs(update.Message)...)
			case update.EditedMessage != nil:
				updateType = "edited_message"
				logEntry = logEntry.With(messageAttrs(update.EditedMessage)...)
			case update.CallbackQuery != nil:
				updateType = "callback_query"
				cq := update.CallbackQuery
				logEntry = logEntry.With(
					"callback_query_id", cq.ID,
					"user_id", cq.From.ID,
					"data", cq.Data,
				)
				switch {
				case cq.Message.Message != nil:
					logEntry = logEntry.With("chat_id", cq.Message.Message.Chat.ID, "message_accessible", true)
				case cq.Message.InaccessibleMessage != nil:
					logEntry = logEntry.With("chat_id", cq.Message.InaccessibleMessage.Chat.ID, "message_accessible", false)
				}
			default:
				updateType = "other"
			}
			logEntry = logEntry.With("update_type", updateType)

			logEntry.InfoContext(ctx, "Processing update")

			next(ctx, update)

			duration := time.Since(startTime)
			logEntry.InfoContext(ctx, "Finished processing update", "duration", duration)
		}
	}
}

// Recoverer logs and swallows a panic raised while handling an update.
func Recoverer(log *slog.Logger) telegram.Middleware {
	return func(next telegram.HandlerFunc) telegram.HandlerFunc {
		return func(ctx context.Context, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					log.ErrorContext(ctx, "Panic while processing update", "update_id", update.ID, "panic", r)
				}
			}()
			next(ctx, update)
		}
	}
}

func messageAttrs(msg *models.Message) []any {
	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	return []any{
		"message_id", msg.ID,
		"chat_id", msg.Chat.ID,
		"thread_id", msg.MessageThreadID,
		"user_id", userID,
		"text_preview", truncateString(msg.Text, 50),
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}

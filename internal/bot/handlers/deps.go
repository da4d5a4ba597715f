package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/edgard/relaybot/internal/capture"
	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/filter"
	"github.com/edgard/relaybot/internal/settings"
	"github.com/edgard/relaybot/internal/telegram"
)

// HandlerDeps provides dependencies for update handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Settings *settings.Resolver
	Platform telegram.Client
	Captures capture.Store
	Matcher  *filter.Matcher
}

// isOperator reports whether userID is a primary or delegated operator.
func (d HandlerDeps) isOperator(ctx context.Context, userID int64) bool {
	if d.Config.IsPrimaryOperator(userID) {
		return true
	}
	return lo.Contains(parseIDs(d.Settings.List(ctx, settings.KeyOperators)), userID)
}

// send delivers text and logs a failure. It reports whether the send succeeded.
func (d HandlerDeps) send(ctx context.Context, log *slog.Logger, msg telegram.OutgoingText) bool {
	if _, err := d.Platform.SendText(ctx, msg); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", msg.ChatID, "thread_id", msg.ThreadID)
		return false
	}
	return true
}

func parseIDs(entries []string) []int64 {
	return lo.FilterMap(entries, func(s string, _ int) (int64, bool) {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return id, err == nil
	})
}

// commandName returns the bot command of text without slash, mention or
// arguments, or "" if text is not a command.
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text)[0][1:]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/settings"
	"github.com/edgard/relaybot/internal/telegram"
)

// guard inspects a message before relay. It returns true when it handled
// (rejected or answered) the message and the pipeline must stop.
type guard func(ctx context.Context, msg *models.Message, user *database.User) bool

func (h relayHandler) guards() []guard {
	return []guard{
		h.firstMessageGuard,
		h.blocklistGuard,
		h.categoryGuard,
		h.autoReplyGuard,
	}
}

// firstMessageGuard requires the first relayed message to be plain text.
func (h relayHandler) firstMessageGuard(ctx context.Context, msg *models.Message, user *database.User) bool {
	if user.FirstMessageSent || isPlainText(msg) {
		return false
	}
	h.reply(ctx, msg, h.deps.Config.Messages.FirstMessageText)
	return true
}

// blocklistGuard counts a strike for every message matching a blocked
// pattern and blocks the user at the threshold.
func (h relayHandler) blocklistGuard(ctx context.Context, msg *models.Message, user *database.User) bool {
	log := h.deps.Logger.With("guard", "blocklist", "user_id", user.ID)

	pattern, matched := h.deps.Matcher.FirstMatch(ctx, h.deps.Settings.List(ctx, settings.KeyBlockWords), messageText(msg))
	if !matched {
		return false
	}

	count, err := h.deps.Store.IncrementBlockCount(ctx, user.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to increment block count", "error", err)
		h.reply(ctx, msg, h.deps.Config.Messages.GeneralError)
		return true
	}

	threshold := h.deps.Settings.Int(ctx, settings.KeyBlockThreshold)
	if threshold < 1 {
		threshold = 1
	}
	log.InfoContext(ctx, "Blocked pattern matched", "pattern", pattern, "block_count", count, "threshold", threshold)

	if count < threshold {
		h.reply(ctx, msg, fmt.Sprintf(h.deps.Config.Messages.BlockWarningFmt, threshold-count))
		return true
	}

	if err := h.deps.Store.SetBlocked(ctx, user.ID, true); err != nil {
		log.ErrorContext(ctx, "Failed to block user", "error", err)
		return true
	}
	log.WarnContext(ctx, "User blocked after reaching strike threshold")
	h.reply(ctx, msg, h.deps.Config.Messages.Blocked)

	if user.HasThread() {
		h.deps.send(ctx, log, telegram.OutgoingText{
			ChatID:   h.deps.Config.Telegram.StaffGroupID,
			ThreadID: user.Thread(),
			Text:     fmt.Sprintf("🚫 User blocked automatically after %d strikes.", count),
			Silent:   true,
		})
	}
	return true
}

// categoryGuard rejects content classes disabled by their toggle.
func (h relayHandler) categoryGuard(ctx context.Context, msg *models.Message, user *database.User) bool {
	category := Classify(msg)
	if h.deps.Settings.Bool(ctx, category.ToggleKey()) {
		return false
	}
	h.deps.Logger.DebugContext(ctx, "Content category disabled", "user_id", user.ID, "category", category.String())
	h.reply(ctx, msg, fmt.Sprintf(h.deps.Config.Messages.CategoryRejectFmt, category.Label()))
	return true
}

// autoReplyGuard answers with the first matching canned response instead of relaying.
func (h relayHandler) autoReplyGuard(ctx context.Context, msg *models.Message, user *database.User) bool {
	rule, matched := h.deps.Matcher.MatchAutoReply(ctx, h.deps.Settings.List(ctx, settings.KeyAutoReplies), messageText(msg))
	if !matched {
		return false
	}
	h.deps.Logger.InfoContext(ctx, "Auto-reply matched", "user_id", user.ID, "pattern", rule.Pattern)
	h.reply(ctx, msg, rule.Response)
	return true
}

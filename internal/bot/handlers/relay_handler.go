package handlers

import (
	"context"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/settings"
	"github.com/edgard/relaybot/internal/telegram"
)

// relayHandler forwards messages of verified users into their staff thread.
type relayHandler struct {
	deps HandlerDeps
}

func (h relayHandler) Handle(ctx context.Context, msg *models.Message, user *database.User) {
	log := h.deps.Logger.With("handler", "relay", "user_id", user.ID, "message_id", msg.ID)

	if user.State != database.StateVerified || user.IsBlocked {
		log.WarnContext(ctx, "Relay called for user that is not allowed to relay", "state", user.State, "blocked", user.IsBlocked)
		return
	}

	for _, g := range h.guards() {
		if g(ctx, msg, user) {
			return
		}
	}

	threadID, err := h.ensureThread(ctx, log, msg, user)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve staff thread", "error", err)
		h.reply(ctx, msg, h.deps.Config.Messages.DeliveryFailed)
		return
	}

	staffGroup := h.deps.Config.Telegram.StaffGroupID
	if _, err := h.deps.Platform.CopyMessage(ctx, staffGroup, threadID, msg.Chat.ID, msg.ID); err != nil {
		if telegram.IsThreadGone(err) {
			h.resetThread(ctx, log, user.ID, threadID)
			h.reply(ctx, msg, h.deps.Config.Messages.SessionExpired)
			return
		}
		log.ErrorContext(ctx, "Failed to copy message into thread", "error", err, "thread_id", threadID)
		h.reply(ctx, msg, h.deps.Config.Messages.DeliveryFailed)
		return
	}
	log.InfoContext(ctx, "Message relayed", "thread_id", threadID)

	h.deps.send(ctx, log, telegram.OutgoingText{ChatID: msg.Chat.ID, Text: h.deps.Config.Messages.Delivered, Silent: true})

	if !user.FirstMessageSent {
		if err := h.deps.Store.MarkFirstMessageSent(ctx, user.ID); err != nil {
			log.ErrorContext(ctx, "Failed to mark first message sent", "error", err)
		}
	}

	if text := messageText(msg); text != "" {
		if err := h.deps.Store.SaveCachedMessage(ctx, &database.CachedMessage{UserID: user.ID, MessageID: msg.ID, Text: text}); err != nil {
			log.WarnContext(ctx, "Failed to cache message text", "error", err)
		}
	}

	h.mirrorToBackup(ctx, log, msg)
}

// resetThread forgets a thread that no longer exists so the next message creates a new one.
func (h relayHandler) resetThread(ctx context.Context, log *slog.Logger, userID int64, threadID int) {
	cleared, err := h.deps.Store.ClearThread(ctx, userID, threadID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to clear missing thread", "error", err, "thread_id", threadID)
		return
	}
	log.WarnContext(ctx, "Staff thread is gone, binding cleared", "thread_id", threadID, "cleared", cleared)
}

// mirrorToBackup copies the message to the backup chat when one is configured.
func (h relayHandler) mirrorToBackup(ctx context.Context, log *slog.Logger, msg *models.Message) {
	raw := strings.TrimSpace(h.deps.Settings.String(ctx, settings.KeyBackupGroup))
	if raw == "" {
		return
	}
	backupID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.WarnContext(ctx, "Ignoring invalid backup chat id", "value", raw)
		return
	}

	header := identityHeader(msg.From)
	if isPlainText(msg) {
		h.deps.send(ctx, log, telegram.OutgoingText{
			ChatID: backupID,
			Text:   header + "\n\n" + html.EscapeString(msg.Text),
			HTML:   true,
			Silent: true,
		})
		return
	}

	if !h.deps.send(ctx, log, telegram.OutgoingText{ChatID: backupID, Text: header, HTML: true, Silent: true}) {
		return
	}
	if _, err := h.deps.Platform.CopyMessage(ctx, backupID, 0, msg.Chat.ID, msg.ID); err != nil {
		log.WarnContext(ctx, "Failed to mirror message to backup chat", "error", err, "backup_chat_id", backupID)
	}
}

func (h relayHandler) reply(ctx context.Context, msg *models.Message, text string) {
	h.deps.send(ctx, h.deps.Logger.With("handler", "relay"), telegram.OutgoingText{ChatID: msg.Chat.ID, Text: text})
}

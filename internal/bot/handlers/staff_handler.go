package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/settings"
	"github.com/edgard/relaybot/internal/telegram"
)

// staffHandler routes operator replies in a thread back to the thread's user.
type staffHandler struct {
	deps HandlerDeps
}

func (h staffHandler) Handle(ctx context.Context, msg *models.Message) {
	if msg.From == nil || msg.From.IsBot || msg.MessageThreadID == 0 {
		return
	}
	log := h.deps.Logger.With("handler", "staff", "operator_id", msg.From.ID, "thread_id", msg.MessageThreadID)

	if !h.deps.isOperator(ctx, msg.From.ID) {
		log.DebugContext(ctx, "Ignoring thread message from non-operator")
		return
	}

	user, err := h.deps.Store.GetUserByThread(ctx, msg.MessageThreadID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve thread to user", "error", err)
		h.notice(ctx, log, msg, h.deps.Config.Messages.GeneralError, false)
		return
	}
	if user == nil {
		h.notice(ctx, log, msg, h.deps.Config.Messages.StaffUnknownThread, false)
		return
	}
	log = log.With("user_id", user.ID)

	switch commandName(msg.Text) {
	case "block":
		h.setBlocked(ctx, log, msg, user, true)
		return
	case "unblock":
		h.setBlocked(ctx, log, msg, user, false)
		return
	case "info":
		h.notice(ctx, log, msg, storedProfileCard(user), true)
		return
	case "start", "help", "cancel", "config":
		log.DebugContext(ctx, "Ignoring bot command in thread", "command", commandName(msg.Text))
		return
	}

	if _, err := h.deps.Platform.CopyMessage(ctx, user.ID, 0, msg.Chat.ID, msg.ID); err != nil {
		log.WarnContext(ctx, "Failed to deliver staff reply", "error", err)
		h.notice(ctx, log, msg, fmt.Sprintf(h.deps.Config.Messages.StaffFailedFmt, err.Error()), false)
		return
	}
	log.InfoContext(ctx, "Staff reply delivered")

	if h.deps.Settings.Bool(ctx, settings.KeyAdminReceipt) {
		h.deps.send(ctx, log, telegram.OutgoingText{
			ChatID:   msg.Chat.ID,
			ThreadID: msg.MessageThreadID,
			Text:     h.deps.Config.Messages.StaffDelivered,
			Silent:   true,
		})
	}
}

func (h staffHandler) setBlocked(ctx context.Context, log *slog.Logger, msg *models.Message, user *database.User, blocked bool) {
	if err := h.deps.Store.SetBlocked(ctx, user.ID, blocked); err != nil {
		log.ErrorContext(ctx, "Failed to update block flag", "error", err, "blocked", blocked)
		h.notice(ctx, log, msg, h.deps.Config.Messages.GeneralError, false)
		return
	}
	text := "✅ User unblocked."
	if blocked {
		text = "🚫 User blocked."
	}
	h.notice(ctx, log, msg, text, false)
}

// notice posts text into the thread msg belongs to.
func (h staffHandler) notice(ctx context.Context, log *slog.Logger, msg *models.Message, text string, html bool) {
	h.deps.send(ctx, log, telegram.OutgoingText{
		ChatID:   msg.Chat.ID,
		ThreadID: msg.MessageThreadID,
		Text:     text,
		HTML:     html,
	})
}

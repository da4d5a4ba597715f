package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/telegram"
)

// editHandler posts a before/after notice into the thread when a user edits a relayed message.
type editHandler struct {
	deps HandlerDeps
}

func (h editHandler) Handle(ctx context.Context, msg *models.Message) {
	if msg.From == nil {
		return
	}
	log := h.deps.Logger.With("handler", "edit", "user_id", msg.From.ID, "message_id", msg.ID)

	user, err := h.deps.Store.GetUser(ctx, msg.From.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load user for edit", "error", err)
		return
	}
	if user == nil || user.State != database.StateVerified || user.IsBlocked || !user.HasThread() {
		log.DebugContext(ctx, "Ignoring edit from user without active thread")
		return
	}

	after := messageText(msg)
	var before string
	cached, err := h.deps.Store.GetCachedMessage(ctx, user.ID, msg.ID)
	if err != nil {
		log.WarnContext(ctx, "Failed to read cached message", "error", err)
	} else if cached != nil {
		before = cached.Text
	}

	_, err = h.deps.Platform.SendText(ctx, telegram.OutgoingText{
		ChatID:   h.deps.Config.Telegram.StaffGroupID,
		ThreadID: user.Thread(),
		Text:     editNotice(before, after),
		HTML:     true,
	})
	if err != nil {
		if telegram.IsThreadGone(err) {
			if _, clearErr := h.deps.Store.ClearThread(ctx, user.ID, user.Thread()); clearErr != nil {
				log.ErrorContext(ctx, "Failed to clear missing thread", "error", clearErr)
			}
		}
		log.ErrorContext(ctx, "Failed to post edit notice", "error", err)
		return
	}

	if after != "" {
		if err := h.deps.Store.SaveCachedMessage(ctx, &database.CachedMessage{UserID: user.ID, MessageID: msg.ID, Text: after}); err != nil {
			log.WarnContext(ctx, "Failed to update cached message", "error", err)
		}
	}
}

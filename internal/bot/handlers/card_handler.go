package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
)

const (
	cardPrefix      = "usr:"
	cardActionBlock = "blk"
	cardActionPin   = "pin"
)

// cardHandler serves the inline controls under a profile card.
type cardHandler struct {
	deps HandlerDeps
}

func (h cardHandler) Handle(ctx context.Context, cq *models.CallbackQuery) {
	log := h.deps.Logger.With("handler", "card", "operator_id", cq.From.ID, "data", cq.Data)

	answer := func(text string) {
		if err := h.deps.Platform.AnswerCallback(ctx, cq.ID, text); err != nil {
			log.WarnContext(ctx, "Failed to answer callback", "error", err)
		}
	}

	if !h.deps.isOperator(ctx, cq.From.ID) {
		answer(h.deps.Config.Messages.NotAuthorized)
		return
	}

	action, rawID, ok := strings.Cut(strings.TrimPrefix(cq.Data, cardPrefix), ":")
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if !ok || err != nil || cq.Message.Message == nil {
		answer("Unknown action")
		return
	}
	card := cq.Message.Message

	switch action {
	case cardActionBlock:
		user, err := h.deps.Store.GetUser(ctx, userID)
		if err != nil || user == nil {
			log.ErrorContext(ctx, "Failed to load user for card action", "error", err, "user_id", userID)
			answer(h.deps.Config.Messages.GeneralError)
			return
		}
		blocked := !user.IsBlocked
		if err := h.deps.Store.SetBlocked(ctx, userID, blocked); err != nil {
			log.ErrorContext(ctx, "Failed to toggle block", "error", err, "user_id", userID)
			answer(h.deps.Config.Messages.GeneralError)
			return
		}
		if err := h.deps.Platform.EditMarkup(ctx, card.Chat.ID, card.ID, cardKeyboard(userID, blocked)); err != nil {
			log.WarnContext(ctx, "Failed to refresh card controls", "error", err)
		}
		log.InfoContext(ctx, "Block toggled from profile card", "user_id", userID, "blocked", blocked)
		if blocked {
			answer("User blocked")
		} else {
			answer("User unblocked")
		}

	case cardActionPin:
		if err := h.deps.Platform.Pin(ctx, card.Chat.ID, card.ID); err != nil {
			log.WarnContext(ctx, "Failed to pin profile card", "error", err)
			answer(h.deps.Config.Messages.GeneralError)
			return
		}
		answer("Pinned")

	default:
		answer("Unknown action")
	}
}

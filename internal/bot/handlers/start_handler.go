package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
	apperrors "github.com/edgard/relaybot/internal/errors"
	"github.com/edgard/relaybot/internal/settings"
	"github.com/edgard/relaybot/internal/telegram"
)

// startHandler drives a user through the verification gate.
type startHandler struct {
	deps HandlerDeps
}

// Handle renders the prompt for the user's current stage. A new user is
// moved to pending_challenge.
func (h startHandler) Handle(ctx context.Context, msg *models.Message, user *database.User) {
	log := h.deps.Logger.With("handler", "start", "user_id", user.ID)
	chatID := msg.Chat.ID

	switch user.State {
	case database.StateNew, database.StatePendingChallenge:
		if user.State == database.StateNew {
			if _, err := h.deps.Store.AdvanceState(ctx, user.ID, database.StatePendingChallenge, database.StateNew); err != nil {
				log.ErrorContext(ctx, "Failed to advance user to pending_challenge", "error", err)
				h.deps.send(ctx, log, telegram.OutgoingText{ChatID: chatID, Text: h.deps.Config.Messages.GeneralError})
				return
			}
		}
		h.deps.send(ctx, log, telegram.OutgoingText{
			ChatID: chatID,
			Text:   h.deps.Settings.String(ctx, settings.KeyWelcomeMsg),
			Markup: h.verifyKeyboard(user.ID),
		})

	case database.StatePendingQA:
		h.deps.send(ctx, log, telegram.OutgoingText{ChatID: chatID, Text: h.deps.Settings.String(ctx, settings.KeyVerifQuestion)})

	case database.StateVerified:
		h.deps.send(ctx, log, telegram.OutgoingText{ChatID: chatID, Text: h.deps.Config.Messages.AlreadyVerified})

	default:
		log.WarnContext(ctx, "User in unknown state", "state", user.State)
	}
}

// HandleAnswer checks a Q&A answer from a pending_qa user.
func (h startHandler) HandleAnswer(ctx context.Context, msg *models.Message, user *database.User) {
	log := h.deps.Logger.With("handler", "answer", "user_id", user.ID)
	chatID := msg.Chat.ID

	expected := strings.TrimSpace(h.deps.Settings.String(ctx, settings.KeyVerifAnswer))
	if strings.TrimSpace(msg.Text) != expected {
		log.InfoContext(ctx, "Wrong verification answer")
		h.deps.send(ctx, log, telegram.OutgoingText{ChatID: chatID, Text: h.deps.Config.Messages.QAWrong})
		return
	}

	advanced, err := h.deps.Store.AdvanceState(ctx, user.ID, database.StateVerified, database.StatePendingQA)
	if err != nil {
		log.ErrorContext(ctx, "Failed to mark user verified", "error", err)
		h.deps.send(ctx, log, telegram.OutgoingText{ChatID: chatID, Text: h.deps.Config.Messages.GeneralError})
		return
	}
	if advanced {
		log.InfoContext(ctx, "User verified")
	}
	h.deps.send(ctx, log, telegram.OutgoingText{ChatID: chatID, Text: h.deps.Config.Messages.Verified})
}

// CompleteChallenge moves a user past the external challenge and pushes the
// Q&A prompt. It returns false when the user was already past this stage.
func (h startHandler) CompleteChallenge(ctx context.Context, userID int64) (bool, error) {
	log := h.deps.Logger.With("handler", "challenge", "user_id", userID)

	user, err := h.deps.Store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", userID), nil)
	}
	if user.IsBlocked {
		return false, apperrors.NewValidationError("user is blocked", nil)
	}

	advanced, err := h.deps.Store.AdvanceState(ctx, userID, database.StatePendingQA, database.StateNew, database.StatePendingChallenge)
	if err != nil {
		return false, err
	}
	if !advanced && user.State != database.StatePendingQA {
		log.InfoContext(ctx, "Challenge completed by user past the challenge stage", "state", user.State)
		return false, nil
	}

	question := h.deps.Settings.String(ctx, settings.KeyVerifQuestion)
	h.deps.send(ctx, log, telegram.OutgoingText{
		ChatID: userID,
		Text:   fmt.Sprintf(h.deps.Config.Messages.ChallengePassed, question),
	})
	log.InfoContext(ctx, "Challenge passed, Q&A prompt sent", "advanced", advanced)
	return advanced, nil
}

// verifyKeyboard links to the challenge page, as a WebApp button when init
// data is required so the page receives it.
func (h startHandler) verifyKeyboard(userID int64) *models.InlineKeyboardMarkup {
	link := strings.TrimRight(h.deps.Config.Server.PublicURL, "/") + "/verify?user_id=" + strconv.FormatInt(userID, 10)
	button := models.InlineKeyboardButton{Text: h.deps.Config.Messages.VerifyButton}
	if h.deps.Config.Verification.RequireInitData {
		button.WebApp = &models.WebAppInfo{URL: link}
	} else {
		button.URL = link
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{{button}}}
}

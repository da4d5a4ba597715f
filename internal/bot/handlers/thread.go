package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/telegram"
)

// ensureThread returns the user's staff thread, creating and claiming one if
// none is bound. When a concurrent update claims first, the topic created
// here is deleted and the winner's thread is used.
func (h relayHandler) ensureThread(ctx context.Context, log *slog.Logger, msg *models.Message, user *database.User) (int, error) {
	if user.HasThread() {
		return user.Thread(), nil
	}

	staffGroup := h.deps.Config.Telegram.StaffGroupID
	name := displayName(msg.From)
	title := threadTitle(name, user.ID, h.deps.Config.Relay.ThreadTitleMaxLen)

	threadID, err := h.deps.Platform.CreateThread(ctx, staffGroup, title)
	if err != nil {
		return 0, fmt.Errorf("failed to create thread: %w", err)
	}

	snapshot := database.ProfileSnapshot{Name: name, FirstContactAt: user.CreatedAt}
	if msg.From != nil {
		snapshot.Username = msg.From.Username
	}

	claimed, err := h.deps.Store.ClaimThread(ctx, user.ID, threadID, snapshot)
	if err != nil {
		h.discardThread(ctx, log, threadID)
		return 0, err
	}

	if !claimed {
		h.discardThread(ctx, log, threadID)
		current, err := h.deps.Store.GetUser(ctx, user.ID)
		if err != nil {
			return 0, err
		}
		if !current.HasThread() {
			return 0, fmt.Errorf("thread claim lost but no thread bound to user %d", user.ID)
		}
		log.InfoContext(ctx, "Using thread created by concurrent update", "thread_id", current.Thread())
		return current.Thread(), nil
	}

	log.InfoContext(ctx, "Created staff thread", "thread_id", threadID, "title", title)
	h.postProfileCard(ctx, log, msg, user, threadID)
	return threadID, nil
}

func (h relayHandler) postProfileCard(ctx context.Context, log *slog.Logger, msg *models.Message, user *database.User, threadID int) {
	card := profileCard(msg.From, user)
	h.deps.send(ctx, log, telegram.OutgoingText{
		ChatID:   h.deps.Config.Telegram.StaffGroupID,
		ThreadID: threadID,
		Text:     card,
		HTML:     true,
		Markup:   cardKeyboard(user.ID, user.IsBlocked),
	})
}

func (h relayHandler) discardThread(ctx context.Context, log *slog.Logger, threadID int) {
	if err := h.deps.Platform.DeleteThread(ctx, h.deps.Config.Telegram.StaffGroupID, threadID); err != nil {
		log.WarnContext(ctx, "Failed to delete duplicate thread", "error", err, "thread_id", threadID)
	}
}

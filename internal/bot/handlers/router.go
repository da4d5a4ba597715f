// Package handlers contains the update handlers of the relay bot: the
// verification gate, the relay pipeline, the staff reply router and the
// admin configuration menu, plus the Router dispatching updates to them.
package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/telegram"
)

// Router classifies updates and hands them to the matching handler.
type Router struct {
	deps  HandlerDeps
	start startHandler
	relay relayHandler
	edit  editHandler
	staff staffHandler
	admin adminHandler
	card  cardHandler
}

// NewRouter wires all handlers over deps.
func NewRouter(deps HandlerDeps) *Router {
	return &Router{
		deps:  deps,
		start: startHandler{deps},
		relay: relayHandler{deps},
		edit:  editHandler{deps},
		staff: staffHandler{deps},
		admin: adminHandler{deps},
		card:  cardHandler{deps},
	}
}

// Handler returns Dispatch as a telegram.HandlerFunc.
func (r *Router) Handler() telegram.HandlerFunc {
	return r.Dispatch
}

// CompleteChallenge advances a user who passed the external challenge and
// pushes the Q&A prompt.
func (r *Router) CompleteChallenge(ctx context.Context, userID int64) (bool, error) {
	return r.start.CompleteChallenge(ctx, userID)
}

// Dispatch routes one update.
func (r *Router) Dispatch(ctx context.Context, update *models.Update) {
	switch {
	case update.CallbackQuery != nil:
		r.dispatchCallback(ctx, update.CallbackQuery)

	case update.EditedMessage != nil && update.EditedMessage.Chat.Type == models.ChatTypePrivate:
		r.edit.Handle(ctx, update.EditedMessage)

	case update.Message != nil && update.Message.Chat.ID == r.deps.Config.Telegram.StaffGroupID:
		if r.interceptCapture(ctx, update.Message) {
			return
		}
		r.staff.Handle(ctx, update.Message)

	case update.Message != nil && update.Message.Chat.Type == models.ChatTypePrivate:
		r.dispatchPrivate(ctx, update.Message)

	default:
		r.deps.Logger.DebugContext(ctx, "Ignoring unsupported update", "update_id", update.ID)
	}
}

func (r *Router) dispatchCallback(ctx context.Context, cq *models.CallbackQuery) {
	switch {
	case strings.HasPrefix(cq.Data, adminPrefix):
		r.admin.HandleCallback(ctx, cq)
	case strings.HasPrefix(cq.Data, cardPrefix):
		r.card.Handle(ctx, cq)
	default:
		if err := r.deps.Platform.AnswerCallback(ctx, cq.ID, ""); err != nil {
			r.deps.Logger.WarnContext(ctx, "Failed to answer callback", "error", err)
		}
	}
}

func (r *Router) dispatchPrivate(ctx context.Context, msg *models.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	log := r.deps.Logger.With("user_id", msg.From.ID)

	user, err := r.deps.Store.EnsureUser(ctx, msg.From.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load user", "error", err)
		r.deps.send(ctx, log, telegram.OutgoingText{ChatID: msg.Chat.ID, Text: r.deps.Config.Messages.GeneralError})
		return
	}
	if user.IsBlocked {
		log.DebugContext(ctx, "Dropping message from blocked user")
		return
	}

	if user.State != database.StateVerified && r.deps.isOperator(ctx, user.ID) {
		if err := r.deps.Store.SetState(ctx, user.ID, database.StateVerified); err != nil {
			log.ErrorContext(ctx, "Failed to force-verify operator", "error", err)
		} else {
			log.InfoContext(ctx, "Operator verified on first contact")
			user.State = database.StateVerified
		}
	}

	primary := r.deps.Config.IsPrimaryOperator(user.ID)
	switch commandName(msg.Text) {
	case "start", "help":
		if primary {
			r.admin.clearCapture(ctx, log, user.ID)
		}
		r.start.Handle(ctx, msg, user)
		return
	case "cancel":
		if primary {
			r.admin.Cancel(ctx, msg)
			return
		}
	case "config":
		if primary {
			r.admin.OpenRoot(ctx, msg.Chat.ID, user.ID)
			return
		}
	}

	if r.interceptCapture(ctx, msg) {
		return
	}

	switch user.State {
	case database.StateNew, database.StatePendingChallenge:
		r.start.Handle(ctx, msg, user)
	case database.StatePendingQA:
		r.start.HandleAnswer(ctx, msg, user)
	case database.StateVerified:
		r.relay.Handle(ctx, msg, user)
	}
}

// interceptCapture feeds a primary operator's plain-text message into a
// pending configuration edit. It reports whether the message was consumed.
func (r *Router) interceptCapture(ctx context.Context, msg *models.Message) bool {
	if msg.From == nil || msg.Text == "" || !r.deps.Config.IsPrimaryOperator(msg.From.ID) {
		return false
	}
	state, err := r.deps.Captures.GetCapture(ctx, msg.From.ID)
	if err != nil {
		r.deps.Logger.WarnContext(ctx, "Failed to read capture state", "error", err, "admin_id", msg.From.ID)
		return false
	}
	if state == nil {
		return false
	}
	switch commandName(msg.Text) {
	case "start", "help":
		r.admin.clearCapture(ctx, r.deps.Logger.With("admin_id", msg.From.ID), msg.From.ID)
		return false
	case "cancel":
		r.admin.Cancel(ctx, msg)
		return true
	}
	r.admin.HandleInput(ctx, msg, state)
	return true
}

package handlers

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	"github.com/edgard/relaybot/internal/database"
	apperrors "github.com/edgard/relaybot/internal/errors"
	"github.com/edgard/relaybot/internal/filter"
	"github.com/edgard/relaybot/internal/settings"
	"github.com/edgard/relaybot/internal/telegram"
)

// adminHandler runs the runtime configuration menu of the primary operators.
type adminHandler struct {
	deps HandlerDeps
}

// OpenRoot clears any pending capture and sends the root menu as a new message.
func (h adminHandler) OpenRoot(ctx context.Context, chatID, adminID int64) {
	log := h.deps.Logger.With("handler", "admin", "admin_id", adminID)
	h.clearCapture(ctx, log, adminID)
	h.sendMenu(ctx, log, chatID, menuRoot)
}

// Cancel leaves input capture.
func (h adminHandler) Cancel(ctx context.Context, msg *models.Message) {
	log := h.deps.Logger.With("handler", "admin", "admin_id", msg.From.ID)
	h.clearCapture(ctx, log, msg.From.ID)
	h.deps.send(ctx, log, telegram.OutgoingText{ChatID: msg.Chat.ID, ThreadID: msg.MessageThreadID, Text: h.deps.Config.Messages.ConfigCancelled})
}

// HandleCallback executes a cfg: action token.
func (h adminHandler) HandleCallback(ctx context.Context, cq *models.CallbackQuery) {
	log := h.deps.Logger.With("handler", "admin", "admin_id", cq.From.ID, "data", cq.Data)

	answer := func(text string) {
		if err := h.deps.Platform.AnswerCallback(ctx, cq.ID, text); err != nil {
			log.WarnContext(ctx, "Failed to answer callback", "error", err)
		}
	}

	if !h.deps.Config.IsPrimaryOperator(cq.From.ID) {
		log.WarnContext(ctx, "Unauthorized configuration attempt")
		answer(h.deps.Config.Messages.NotAuthorized)
		return
	}

	action, err := parseAdminAction(cq.Data)
	if err != nil {
		log.WarnContext(ctx, "Invalid admin action", "error", err)
		answer("Unknown action")
		return
	}

	chatID := cq.From.ID
	var menuMsg *models.Message
	if cq.Message.Message != nil {
		menuMsg = cq.Message.Message
		chatID = menuMsg.Chat.ID
	}

	switch action.op {
	case opRoot:
		h.clearCapture(ctx, log, cq.From.ID)
		h.showMenu(ctx, log, chatID, menuMsg, menuRoot)
		answer("")

	case opNav:
		h.showMenu(ctx, log, chatID, menuMsg, action.key)
		answer("")

	case opToggle:
		value := !h.deps.Settings.Bool(ctx, action.key)
		if err := h.deps.Settings.Set(ctx, action.key, strconv.FormatBool(value)); err != nil {
			log.ErrorContext(ctx, "Failed to toggle setting", "error", err, "key", action.key)
			answer(h.deps.Config.Messages.GeneralError)
			return
		}
		log.InfoContext(ctx, "Setting toggled", "key", action.key, "value", value)
		h.showMenu(ctx, log, chatID, menuMsg, sectionOf(action.key))
		answer(h.deps.Config.Messages.ConfigSaved)

	case opEdit, opAdd:
		captureAction := database.CaptureEdit
		if action.op == opAdd {
			captureAction = database.CaptureAdd
		}
		state := &database.CaptureState{AdminID: cq.From.ID, Action: captureAction, TargetKey: action.key}
		if err := h.deps.Captures.SetCapture(ctx, state); err != nil {
			log.ErrorContext(ctx, "Failed to store capture state", "error", err)
			answer(h.deps.Config.Messages.GeneralError)
			return
		}
		answer("")
		h.prompt(ctx, log, chatID, action)

	case opClear:
		var err error
		if settings.IsList(action.key) {
			err = h.deps.Settings.SetList(ctx, action.key, nil)
		} else {
			err = h.deps.Settings.Set(ctx, action.key, "")
		}
		if err != nil {
			log.ErrorContext(ctx, "Failed to clear setting", "error", err, "key", action.key)
			answer(h.deps.Config.Messages.GeneralError)
			return
		}
		log.InfoContext(ctx, "Setting cleared", "key", action.key)
		h.showMenu(ctx, log, chatID, menuMsg, sectionOf(action.key))
		answer(h.deps.Config.Messages.ConfigSaved)

	case opDel:
		entries := h.deps.Settings.List(ctx, action.key)
		if action.index >= len(entries) {
			h.showMenu(ctx, log, chatID, menuMsg, sectionOf(action.key))
			answer("Entry no longer exists")
			return
		}
		entries = append(entries[:action.index:action.index], entries[action.index+1:]...)
		if err := h.deps.Settings.SetList(ctx, action.key, entries); err != nil {
			log.ErrorContext(ctx, "Failed to delete list entry", "error", err, "key", action.key)
			answer(h.deps.Config.Messages.GeneralError)
			return
		}
		log.InfoContext(ctx, "List entry deleted", "key", action.key, "index", action.index)
		h.showMenu(ctx, log, chatID, menuMsg, sectionOf(action.key))
		answer(h.deps.Config.Messages.ConfigSaved)
	}
}

// HandleInput consumes the admin's captured text and writes it to the target key.
func (h adminHandler) HandleInput(ctx context.Context, msg *models.Message, state *database.CaptureState) {
	log := h.deps.Logger.With("handler", "admin_input", "admin_id", state.AdminID, "key", state.TargetKey)
	reply := func(text string, html bool) {
		h.deps.send(ctx, log, telegram.OutgoingText{ChatID: msg.Chat.ID, ThreadID: msg.MessageThreadID, Text: text, HTML: html})
	}

	if err := h.apply(ctx, state, msg.Text); err != nil {
		if apperrors.Code(err) == apperrors.CodeValidation {
			log.InfoContext(ctx, "Rejected configuration input", "error", err)
			reply("❌ "+err.Error()+"\n\nSend a corrected value or /cancel to abort.", false)
			return
		}
		log.ErrorContext(ctx, "Failed to store configuration input", "error", err)
		reply(h.deps.Config.Messages.GeneralError, false)
		return
	}

	log.InfoContext(ctx, "Configuration updated", "action", state.Action)
	h.clearCapture(ctx, log, state.AdminID)
	reply(h.deps.Config.Messages.ConfigSaved, false)
	h.sendMenu(ctx, log, msg.Chat.ID, menuRoot)
}

// apply validates text for the captured key and persists it.
func (h adminHandler) apply(ctx context.Context, state *database.CaptureState, text string) error {
	key, ok := settings.Lookup(state.TargetKey)
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown setting %q", state.TargetKey), nil)
	}

	if key.Kind == settings.KindList {
		entries := lo.Compact(lo.Map(strings.Split(text, "\n"), func(line string, _ int) string {
			return strings.TrimSpace(line)
		}))
		if len(entries) == 0 {
			return apperrors.NewValidationError("no entries found, send one entry per line", nil)
		}
		for _, entry := range entries {
			if err := h.validateEntry(key.Name, entry); err != nil {
				return err
			}
		}
		if state.Action == database.CaptureAdd {
			entries = append(h.deps.Settings.List(ctx, key.Name), entries...)
		}
		return h.deps.Settings.SetList(ctx, key.Name, lo.Uniq(entries))
	}

	value := strings.TrimSpace(text)
	switch key.Kind {
	case settings.KindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return apperrors.NewValidationError("value must be a positive whole number", nil)
		}
		value = strconv.Itoa(n)
	case settings.KindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return apperrors.NewValidationError("value must be true or false", nil)
		}
		value = strconv.FormatBool(b)
	default:
		if value == "" {
			return apperrors.NewValidationError("value cannot be empty", nil)
		}
		if key.Name == settings.KeyBackupGroup {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				return apperrors.NewValidationError("backup chat id must be a number such as -1001234567890", nil)
			}
		}
	}
	return h.deps.Settings.Set(ctx, key.Name, value)
}

func (h adminHandler) validateEntry(key, entry string) error {
	switch key {
	case settings.KeyOperators:
		id, err := strconv.ParseInt(entry, 10, 64)
		if err != nil || id <= 0 {
			return apperrors.NewValidationError(fmt.Sprintf("%q is not a user id", entry), nil)
		}
	case settings.KeyBlockWords:
		if err := h.deps.Matcher.ValidatePattern(entry); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("%q: %v", entry, err), nil)
		}
	case settings.KeyAutoReplies:
		rule, err := filter.ParseAutoReply(entry)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("%q: expected pattern%sresponse", entry, filter.AutoReplySeparator), nil)
		}
		if err := h.deps.Matcher.ValidatePattern(rule.Pattern); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("%q: %v", rule.Pattern, err), nil)
		}
	}
	return nil
}

func (h adminHandler) prompt(ctx context.Context, log *slog.Logger, chatID int64, action adminAction) {
	key, _ := settings.Lookup(action.key)
	current := h.deps.Settings.String(ctx, action.key)
	if key.Kind == settings.KindList {
		current = strings.Join(settings.DecodeList(current), "\n")
	}
	if strings.TrimSpace(current) == "" {
		current = "(empty)"
	}

	text := fmt.Sprintf(h.deps.Config.Messages.ConfigPromptFmt, html.EscapeString(key.Label), html.EscapeString(current))
	switch {
	case action.op == opAdd:
		text += "\n\nEach line becomes a new entry."
	case key.Kind == settings.KindList:
		text += "\n\nThe list is replaced, one entry per line."
	}
	if action.key == settings.KeyAutoReplies {
		text += "\nFormat: <code>pattern" + filter.AutoReplySeparator + "response</code>"
	}
	h.deps.send(ctx, log, telegram.OutgoingText{ChatID: chatID, Text: text, HTML: true})
}

// showMenu edits the menu message in place, or sends a new one when it is not accessible.
func (h adminHandler) showMenu(ctx context.Context, log *slog.Logger, chatID int64, menuMsg *models.Message, menu string) {
	if menuMsg == nil {
		h.sendMenu(ctx, log, chatID, menu)
		return
	}
	text, markup := renderMenu(menu, snapshotSettings(ctx, h.deps.Settings))
	if err := h.deps.Platform.EditText(ctx, chatID, menuMsg.ID, text, markup); err != nil {
		log.WarnContext(ctx, "Failed to edit menu, sending a new one", "error", err)
		h.sendMenu(ctx, log, chatID, menu)
	}
}

func (h adminHandler) sendMenu(ctx context.Context, log *slog.Logger, chatID int64, menu string) {
	text, markup := renderMenu(menu, snapshotSettings(ctx, h.deps.Settings))
	h.deps.send(ctx, log, telegram.OutgoingText{ChatID: chatID, Text: text, HTML: true, Markup: markup})
}

func (h adminHandler) clearCapture(ctx context.Context, log *slog.Logger, adminID int64) {
	if err := h.deps.Captures.ClearCapture(ctx, adminID); err != nil {
		log.WarnContext(ctx, "Failed to clear capture state", "error", err)
	}
}

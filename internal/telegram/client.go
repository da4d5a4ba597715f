package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	apperrors "github.com/edgard/relaybot/internal/errors"
)

//go:generate go run go.uber.org/mock/mockgen -source=client.go -destination=mocks/mock_client.go -package=mocks

// OutgoingText is a text message to send.
type OutgoingText struct {
	ChatID   int64
	ThreadID int
	Text     string
	HTML     bool
	// Silent delivers the message without a notification sound.
	Silent bool
	Markup models.ReplyMarkup
}

// Client is the subset of the Bot API the relay speaks through.
// Every method returns the platform message or thread id where one exists.
type Client interface {
	SendText(ctx context.Context, msg OutgoingText) (int, error)
	CopyMessage(ctx context.Context, toChatID int64, threadID int, fromChatID int64, messageID int) (int, error)
	CreateThread(ctx context.Context, chatID int64, name string) (int, error)
	DeleteThread(ctx context.Context, chatID int64, threadID int) error
	EditMarkup(ctx context.Context, chatID int64, messageID int, markup *models.InlineKeyboardMarkup) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, markup *models.InlineKeyboardMarkup) error
	Pin(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// threadGoneMarkers are API descriptions meaning the forum topic no longer exists.
var threadGoneMarkers = []string{
	"message thread not found",
	"topic_deleted",
	"topic_id_invalid",
}

// botClient implements Client on top of go-telegram/bot.
type botClient struct {
	b      *bot.Bot
	logger *slog.Logger
}

// NewClient wraps a bot instance.
func NewClient(b *bot.Bot, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &botClient{b: b, logger: logger.With("component", "telegram_client")}
}

func (c *botClient) SendText(ctx context.Context, msg OutgoingText) (int, error) {
	params := &bot.SendMessageParams{
		ChatID:              msg.ChatID,
		MessageThreadID:     msg.ThreadID,
		Text:                msg.Text,
		DisableNotification: msg.Silent,
		ReplyMarkup:         msg.Markup,
	}
	if msg.HTML {
		params.ParseMode = models.ParseModeHTML
	}

	sent, err := c.b.SendMessage(ctx, params)
	if err != nil {
		return 0, c.wrap(ctx, "sendMessage", err, "chat_id", msg.ChatID, "thread_id", msg.ThreadID)
	}
	return sent.ID, nil
}

func (c *botClient) CopyMessage(ctx context.Context, toChatID int64, threadID int, fromChatID int64, messageID int) (int, error) {
	copied, err := c.b.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:          toChatID,
		MessageThreadID: threadID,
		FromChatID:      fromChatID,
		MessageID:       messageID,
	})
	if err != nil {
		return 0, c.wrap(ctx, "copyMessage", err, "to_chat_id", toChatID, "thread_id", threadID, "message_id", messageID)
	}
	return copied.ID, nil
}

func (c *botClient) CreateThread(ctx context.Context, chatID int64, name string) (int, error) {
	topic, err := c.b.CreateForumTopic(ctx, &bot.CreateForumTopicParams{
		ChatID: chatID,
		Name:   name,
	})
	if err != nil {
		return 0, c.wrap(ctx, "createForumTopic", err, "chat_id", chatID)
	}
	return topic.MessageThreadID, nil
}

func (c *botClient) DeleteThread(ctx context.Context, chatID int64, threadID int) error {
	if _, err := c.b.DeleteForumTopic(ctx, &bot.DeleteForumTopicParams{
		ChatID:          chatID,
		MessageThreadID: threadID,
	}); err != nil {
		return c.wrap(ctx, "deleteForumTopic", err, "chat_id", chatID, "thread_id", threadID)
	}
	return nil
}

func (c *botClient) EditMarkup(ctx context.Context, chatID int64, messageID int, markup *models.InlineKeyboardMarkup) error {
	params := &bot.EditMessageReplyMarkupParams{
		ChatID:    chatID,
		MessageID: messageID,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := c.b.EditMessageReplyMarkup(ctx, params); err != nil {
		return c.wrap(ctx, "editMessageReplyMarkup", err, "chat_id", chatID, "message_id", messageID)
	}
	return nil
}

func (c *botClient) EditText(ctx context.Context, chatID int64, messageID int, text string, markup *models.InlineKeyboardMarkup) error {
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := c.b.EditMessageText(ctx, params); err != nil {
		// Re-rendering an unchanged menu is not a failure.
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return c.wrap(ctx, "editMessageText", err, "chat_id", chatID, "message_id", messageID)
	}
	return nil
}

func (c *botClient) Pin(ctx context.Context, chatID int64, messageID int) error {
	if _, err := c.b.PinChatMessage(ctx, &bot.PinChatMessageParams{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	}); err != nil {
		return c.wrap(ctx, "pinChatMessage", err, "chat_id", chatID, "message_id", messageID)
	}
	return nil
}

func (c *botClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := c.b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		return c.wrap(ctx, "answerCallbackQuery", err)
	}
	return nil
}

// wrap classifies an API failure. Missing forum topics become NotFound errors
// wrapping ErrThreadNotFound; everything else is an ExternalAPIError.
func (c *botClient) wrap(ctx context.Context, method string, err error, attrs ...any) error {
	c.logger.DebugContext(ctx, "Telegram API call failed", append([]any{"method", method, "error", err}, attrs...)...)
	if IsThreadGone(err) {
		return apperrors.NewNotFoundError(fmt.Sprintf("%s: %v", method, err), apperrors.ErrThreadNotFound)
	}
	return apperrors.NewExternalAPIError(fmt.Sprintf("%s failed", method), err)
}

// IsThreadGone reports whether err says the target forum topic is gone.
func IsThreadGone(err error) bool {
	if err == nil {
		return false
	}
	if apperrors.Is(err, apperrors.ErrThreadNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range threadGoneMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

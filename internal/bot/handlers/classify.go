package handlers

import (
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/settings"
)

// Category is the content class of a user message. Every message has exactly one.
type Category int

const (
	CategoryForwarded Category = iota
	CategoryChannelForward
	CategoryAudio
	CategorySticker
	CategoryMedia
	CategoryLink
	CategoryText
)

var categoryInfo = map[Category]struct {
	name      string
	label     string
	toggleKey string
}{
	CategoryForwarded:      {"forwarded", "Forwarded messages", settings.KeyAllowForwarded},
	CategoryChannelForward: {"channel_forward", "Forwards from channels", settings.KeyAllowChannelForward},
	CategoryAudio:          {"audio", "Audio and voice messages", settings.KeyAllowAudio},
	CategorySticker:        {"sticker", "Stickers and GIFs", settings.KeyAllowSticker},
	CategoryMedia:          {"media", "Photos, videos and files", settings.KeyAllowMedia},
	CategoryLink:           {"link", "Links", settings.KeyAllowLink},
	CategoryText:           {"text", "Text messages", settings.KeyAllowText},
}

func (c Category) String() string { return categoryInfo[c].name }

// Label is the user-facing plural name of the category.
func (c Category) Label() string { return categoryInfo[c].label }

// ToggleKey is the runtime setting enabling the category.
func (c Category) ToggleKey() string { return categoryInfo[c].toggleKey }

// Classify assigns msg to a category by fixed priority: forwarded,
// channel forward, audio, sticker, media, link, text.
func Classify(msg *models.Message) Category {
	switch {
	case msg.ForwardOrigin != nil && msg.ForwardOrigin.MessageOriginChannel == nil:
		return CategoryForwarded
	case msg.ForwardOrigin != nil:
		return CategoryChannelForward
	case msg.Audio != nil || msg.Voice != nil:
		return CategoryAudio
	case msg.Sticker != nil || msg.Animation != nil:
		return CategorySticker
	case len(msg.Photo) > 0 || msg.Video != nil || msg.Document != nil || msg.VideoNote != nil:
		return CategoryMedia
	case hasLink(msg.Entities) || hasLink(msg.CaptionEntities):
		return CategoryLink
	default:
		return CategoryText
	}
}

func hasLink(entities []models.MessageEntity) bool {
	for _, e := range entities {
		if e.Type == models.MessageEntityTypeURL || e.Type == models.MessageEntityTypeTextLink {
			return true
		}
	}
	return false
}

// isPlainText reports whether msg is text without any attachment.
func isPlainText(msg *models.Message) bool {
	if msg.Text == "" {
		return false
	}
	return len(msg.Photo) == 0 && msg.Video == nil && msg.Document == nil && msg.Audio == nil &&
		msg.Voice == nil && msg.Sticker == nil && msg.Animation == nil && msg.VideoNote == nil
}

package handlers

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	userOrigin := &models.MessageOrigin{MessageOriginUser: &models.MessageOriginUser{SenderUser: models.User{ID: 5}}}
	channelOrigin := &models.MessageOrigin{MessageOriginChannel: &models.MessageOriginChannel{Chat: models.Chat{ID: -1005}}}
	link := []models.MessageEntity{{Type: models.MessageEntityTypeURL, Offset: 0, Length: 15}}
	textLink := []models.MessageEntity{{Type: models.MessageEntityTypeTextLink, Offset: 0, Length: 4, URL: "https://x.y"}}

	tests := []struct {
		name string
		msg  *models.Message
		want Category
	}{
		{name: "plain text", msg: &models.Message{Text: "hello"}, want: CategoryText},
		{name: "forwarded from user", msg: &models.Message{Text: "hi", ForwardOrigin: userOrigin}, want: CategoryForwarded},
		{name: "forwarded from channel", msg: &models.Message{Text: "news", ForwardOrigin: channelOrigin}, want: CategoryChannelForward},
		{name: "forwarded audio stays forwarded", msg: &models.Message{Audio: &models.Audio{}, ForwardOrigin: userOrigin}, want: CategoryForwarded},
		{name: "voice", msg: &models.Message{Voice: &models.Voice{}}, want: CategoryAudio},
		{name: "audio", msg: &models.Message{Audio: &models.Audio{}}, want: CategoryAudio},
		{name: "sticker", msg: &models.Message{Sticker: &models.Sticker{}}, want: CategorySticker},
		{name: "gif", msg: &models.Message{Animation: &models.Animation{}}, want: CategorySticker},
		{name: "photo with link caption", msg: &models.Message{Photo: []models.PhotoSize{{}}, Caption: "https://a.b", CaptionEntities: link}, want: CategoryMedia},
		{name: "document", msg: &models.Message{Document: &models.Document{}}, want: CategoryMedia},
		{name: "video note", msg: &models.Message{VideoNote: &models.VideoNote{}}, want: CategoryMedia},
		{name: "url", msg: &models.Message{Text: "https://example.com", Entities: link}, want: CategoryLink},
		{name: "text link", msg: &models.Message{Text: "here", Entities: textLink}, want: CategoryLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.msg))
		})
	}
}

func TestCategoryMetadata(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for c := CategoryForwarded; c <= CategoryText; c++ {
		assert.NotEmpty(t, c.String())
		assert.NotEmpty(t, c.Label())
		assert.NotEmpty(t, c.ToggleKey())
		assert.False(t, seen[c.ToggleKey()], "toggle keys are unique")
		seen[c.ToggleKey()] = true
	}
}

func TestIsPlainText(t *testing.T) {
	t.Parallel()

	assert.True(t, isPlainText(&models.Message{Text: "hi"}))
	assert.False(t, isPlainText(&models.Message{Caption: "hi", Photo: []models.PhotoSize{{}}}))
	assert.False(t, isPlainText(&models.Message{}))
}

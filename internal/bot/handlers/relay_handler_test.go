package handlers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	apperrors "github.com/edgard/relaybot/internal/errors"
	"github.com/edgard/relaybot/internal/settings"
	"github.com/edgard/relaybot/internal/telegram"
)

func threadGoneErr() error {
	return apperrors.NewNotFoundError("staff thread missing", apperrors.ErrThreadNotFound)
}

func TestRelayFirstMessageCreatesThread(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(testUserID, false)

	update := privateText(testUserID, "hello")
	h.dispatch(update)

	require.Equal(t, []string{"Ann Lee | 42"}, h.created)

	cards := h.sentTo(testStaffGroup)
	require.Len(t, cards, 1)
	assert.Equal(t, firstThreadID, cards[0].ThreadID)
	assert.True(t, cards[0].HTML)
	assert.Contains(t, cards[0].Text, "<b>Name:</b> Ann Lee")
	assert.Contains(t, cards[0].Text, "<code>42</code>")

	require.Len(t, h.copies, 1)
	assert.Equal(t, copyCall{to: testStaffGroup, threadID: firstThreadID, from: testUserID, messageID: update.Message.ID}, h.copies[0])

	receipts := h.sentTo(testUserID)
	require.Len(t, receipts, 1)
	assert.Equal(t, config.DefaultMessages.Delivered, receipts[0].Text)
	assert.True(t, receipts[0].Silent)

	u := h.user(testUserID)
	assert.True(t, u.FirstMessageSent)
	assert.Equal(t, firstThreadID, u.Thread())
	assert.Equal(t, "Ann Lee", u.ProfileName.String)
	assert.Equal(t, "annlee", u.ProfileUsername.String)

	cached, err := h.store.GetCachedMessage(ctx, testUserID, update.Message.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "hello", cached.Text)

	h.reset()
	h.dispatch(privateText(testUserID, "second"))
	assert.Empty(t, h.created, "thread is reused")
	require.Len(t, h.copies, 1)
	assert.Equal(t, firstThreadID, h.copies[0].threadID)
}

func TestRelayFirstMessageMustBePlainText(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.verifiedUser(testUserID, false)

	msg := privateMessage(testUserID, "")
	msg.Photo = []models.PhotoSize{{FileID: "photo"}}
	msg.Caption = "look"
	h.dispatch(&models.Update{Message: msg})

	assert.Equal(t, config.DefaultMessages.FirstMessageText, h.lastTextTo(testUserID))
	assert.Empty(t, h.copies)
	assert.Empty(t, h.created)
	assert.False(t, h.user(testUserID).FirstMessageSent)
}

func TestRelayBlocklistThreshold(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.verifiedUser(testUserID, true)
	h.set(settings.KeyBlockWords, `["spam","casino"]`)

	for remaining := 4; remaining >= 1; remaining-- {
		h.dispatch(privateText(testUserID, "cheap SPAM here"))
		assert.Equal(t, fmt.Sprintf(config.DefaultMessages.BlockWarningFmt, remaining), h.lastTextTo(testUserID))
		assert.False(t, h.user(testUserID).IsBlocked)
	}

	h.dispatch(privateText(testUserID, "online casino"))
	assert.Equal(t, config.DefaultMessages.Blocked, h.lastTextTo(testUserID))
	u := h.user(testUserID)
	assert.True(t, u.IsBlocked)
	assert.Equal(t, 5, u.BlockCount)
	assert.Empty(t, h.copies)

	h.reset()
	h.dispatch(privateText(testUserID, "innocent"))
	assert.Empty(t, h.sent, "blocked users are dropped silently")
	assert.Empty(t, h.copies)
}

func TestRelayBlockNotifiesThread(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(testUserID, true)
	_, err := h.store.ClaimThread(ctx, testUserID, 900, database.ProfileSnapshot{Name: "Ann"})
	require.NoError(t, err)
	h.set(settings.KeyBlockWords, `["spam"]`)
	h.set(settings.KeyBlockThreshold, "1")

	h.dispatch(privateText(testUserID, "spam"))

	assert.True(t, h.user(testUserID).IsBlocked)
	notices := h.sentTo(testStaffGroup)
	require.Len(t, notices, 1)
	assert.Equal(t, 900, notices[0].ThreadID)
	assert.True(t, notices[0].Silent)
}

func TestRelayCategoryGuard(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.verifiedUser(testUserID, true)
	h.set(settings.KeyAllowSticker, "false")

	msg := privateMessage(testUserID, "")
	msg.Sticker = &models.Sticker{FileID: "sticker"}
	h.dispatch(&models.Update{Message: msg})

	assert.Equal(t, fmt.Sprintf(config.DefaultMessages.CategoryRejectFmt, "Stickers and GIFs"), h.lastTextTo(testUserID))
	assert.Empty(t, h.copies)

	h.set(settings.KeyAllowSticker, "true")
	msg = privateMessage(testUserID, "")
	msg.Sticker = &models.Sticker{FileID: "sticker"}
	h.dispatch(&models.Update{Message: msg})
	assert.Len(t, h.copies, 1)
}

func TestRelayAutoReply(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.verifiedUser(testUserID, true)
	h.set(settings.KeyAutoReplies, `["price===See our pricing page","hours===We are open 9-5"]`)

	h.dispatch(privateText(testUserID, "What is the PRICE?"))

	assert.Equal(t, "See our pricing page", h.lastTextTo(testUserID))
	assert.Empty(t, h.copies)
	assert.Empty(t, h.created)

	h.dispatch(privateText(testUserID, "something else"))
	assert.Len(t, h.copies, 1)
}

func TestRelayBlocklistRunsBeforeAutoReply(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.verifiedUser(testUserID, true)
	h.set(settings.KeyBlockWords, `["casino"]`)
	h.set(settings.KeyAutoReplies, `["casino===never shown"]`)

	h.dispatch(privateText(testUserID, "casino"))

	assert.Equal(t, fmt.Sprintf(config.DefaultMessages.BlockWarningFmt, 4), h.lastTextTo(testUserID))
	assert.Equal(t, 1, h.user(testUserID).BlockCount)
}

func TestRelayThreadGoneSelfHeals(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(testUserID, true)
	_, err := h.store.ClaimThread(ctx, testUserID, 900, database.ProfileSnapshot{Name: "Ann"})
	require.NoError(t, err)

	h.copyErr = func(call copyCall) error {
		if call.threadID == 900 {
			return threadGoneErr()
		}
		return nil
	}

	h.dispatch(privateText(testUserID, "are you there?"))
	assert.Equal(t, config.DefaultMessages.SessionExpired, h.lastTextTo(testUserID))
	assert.False(t, h.user(testUserID).HasThread())

	h.dispatch(privateText(testUserID, "are you there?"))
	require.Equal(t, []string{"Ann Lee | 42"}, h.created)
	require.Len(t, h.copies, 1)
	assert.Equal(t, firstThreadID, h.copies[0].threadID)
	assert.Equal(t, firstThreadID, h.user(testUserID).Thread())
}

func TestRelayCopyFailureKeepsThread(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "api unavailable", err: apperrors.NewExternalAPIError("telegram unavailable", nil)},
		{name: "topic closed", err: apperrors.NewExternalAPIError("copy message failed", fmt.Errorf("Bad Request: TOPIC_CLOSED"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			ctx := context.Background()
			h.verifiedUser(testUserID, true)
			_, err := h.store.ClaimThread(ctx, testUserID, 900, database.ProfileSnapshot{Name: "Ann"})
			require.NoError(t, err)
			h.copyErr = func(copyCall) error { return tt.err }

			h.dispatch(privateText(testUserID, "hello"))

			assert.Equal(t, config.DefaultMessages.DeliveryFailed, h.lastTextTo(testUserID))
			assert.Equal(t, 900, h.user(testUserID).Thread(), "binding survives")
			assert.Empty(t, h.created)
		})
	}
}

func TestRelayLosesConcurrentThreadClaim(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(testUserID, false)

	h.onCreateThread = func() {
		claimed, err := h.store.ClaimThread(ctx, testUserID, 999, database.ProfileSnapshot{Name: "Ann"})
		require.NoError(t, err)
		require.True(t, claimed)
	}

	h.dispatch(privateText(testUserID, "hello"))

	assert.Equal(t, []int{firstThreadID}, h.deleted, "losing topic is removed")
	require.Len(t, h.copies, 1)
	assert.Equal(t, 999, h.copies[0].threadID)
	assert.Equal(t, 999, h.user(testUserID).Thread())
	assert.Empty(t, h.sentTo(testStaffGroup), "only the winner posts the profile card")
}

func TestRelayMirrorsToBackup(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.verifiedUser(testUserID, true)
	h.set(settings.KeyBackupGroup, "-200")

	h.dispatch(privateText(testUserID, "a <b> c"))

	backups := h.sentTo(-200)
	require.Len(t, backups, 1)
	assert.True(t, backups[0].HTML)
	assert.True(t, strings.HasPrefix(backups[0].Text, "👤 <b>Ann Lee</b> (@annlee)"))
	assert.True(t, strings.HasSuffix(backups[0].Text, "a &lt;b&gt; c"))

	h.reset()
	msg := privateMessage(testUserID, "")
	msg.Document = &models.Document{FileID: "doc"}
	h.dispatch(&models.Update{Message: msg})

	backups = h.sentTo(-200)
	require.Len(t, backups, 1, "header precedes the copied media")
	require.Len(t, h.copies, 2)
	assert.Equal(t, copyCall{to: -200, from: testUserID, messageID: msg.ID}, h.copies[1])
}

func TestRelayIgnoresInvalidBackupChat(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.verifiedUser(testUserID, true)
	h.set(settings.KeyBackupGroup, "not-a-chat")

	h.dispatch(privateText(testUserID, "hello"))

	assert.Len(t, h.copies, 1)
	assert.Len(t, h.sent, 2, "thread card and delivery receipt only")
}

func TestEditPostsNotice(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(testUserID, true)

	original := privateText(testUserID, "hello")
	h.dispatch(original)
	h.reset()

	edited := *original.Message
	edited.Text = "hello <world>"
	h.dispatch(&models.Update{EditedMessage: &edited})

	notices := h.sentTo(testStaffGroup)
	require.Len(t, notices, 1)
	assert.Equal(t, firstThreadID, notices[0].ThreadID)
	assert.Equal(t, editNotice("hello", "hello <world>"), notices[0].Text)
	assert.Contains(t, notices[0].Text, "hello &lt;world&gt;")

	cached, err := h.store.GetCachedMessage(ctx, testUserID, original.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello <world>", cached.Text)
}

func TestEditOfUncachedMessage(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(testUserID, true)
	_, err := h.store.ClaimThread(ctx, testUserID, 900, database.ProfileSnapshot{Name: "Ann"})
	require.NoError(t, err)

	h.dispatch(&models.Update{EditedMessage: privateMessage(testUserID, "new text")})

	notices := h.sentTo(testStaffGroup)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "<blockquote>unknown</blockquote>")
}

func TestEditIgnoredWithoutThread(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.verifiedUser(testUserID, true)

	h.dispatch(&models.Update{EditedMessage: privateMessage(testUserID, "new text")})

	assert.Empty(t, h.sent)
}

func TestEditClearsGoneThread(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	h.verifiedUser(testUserID, true)
	_, err := h.store.ClaimThread(ctx, testUserID, 900, database.ProfileSnapshot{Name: "Ann"})
	require.NoError(t, err)
	h.sendErr = func(msg telegram.OutgoingText) error {
		if msg.ThreadID == 900 {
			return threadGoneErr()
		}
		return nil
	}

	h.dispatch(&models.Update{EditedMessage: privateMessage(testUserID, "new text")})

	assert.False(t, h.user(testUserID).HasThread())
}

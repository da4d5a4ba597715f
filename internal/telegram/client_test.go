package telegram_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/edgard/relaybot/internal/errors"
	"github.com/edgard/relaybot/internal/telegram"
)

// newFakeAPI serves canned Bot API responses keyed by method name.
func newFakeAPI(t *testing.T, responses map[string]string) telegram.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		body, ok := responses[method]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 404, "description": "Not Found"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	b, err := telegram.NewTelegramBot("123456789:TESTTOKEN", srv.URL, nil, bot.WithSkipGetMe())
	require.NoError(t, err)
	return telegram.NewClient(b, nil)
}

func TestClientSendAndCopy(t *testing.T) {
	t.Parallel()

	client := newFakeAPI(t, map[string]string{
		"sendMessage":      `{"ok":true,"result":{"message_id":11,"date":0,"chat":{"id":1,"type":"private"}}}`,
		"copyMessage":      `{"ok":true,"result":{"message_id":12}}`,
		"createForumTopic": `{"ok":true,"result":{"message_thread_id":77,"name":"x","icon_color":0}}`,
	})
	ctx := context.Background()

	id, err := client.SendText(ctx, telegram.OutgoingText{ChatID: 1, Text: "hi", HTML: true, Silent: true})
	require.NoError(t, err)
	assert.Equal(t, 11, id)

	id, err = client.CopyMessage(ctx, -100, 77, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	threadID, err := client.CreateThread(ctx, -100, "Ann | 1")
	require.NoError(t, err)
	assert.Equal(t, 77, threadID)
}

func TestClientErrorClassification(t *testing.T) {
	t.Parallel()

	client := newFakeAPI(t, map[string]string{
		"copyMessage": `{"ok":false,"error_code":400,"description":"Bad Request: message thread not found"}`,
		"sendMessage": `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`,
	})
	ctx := context.Background()

	_, err := client.CopyMessage(ctx, -100, 77, 1, 5)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrThreadNotFound))
	assert.Equal(t, apperrors.CodeNotFound, apperrors.Code(err))

	_, err = client.SendText(ctx, telegram.OutgoingText{ChatID: 1, Text: "hi"})
	require.Error(t, err)
	assert.False(t, telegram.IsThreadGone(err))
	assert.Equal(t, apperrors.CodeExternalAPI, apperrors.Code(err))
}

package handlers

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/filter"
	"github.com/edgard/relaybot/internal/settings"
	"github.com/edgard/relaybot/internal/telegram"
	"github.com/edgard/relaybot/internal/telegram/mocks"
)

const (
	testAdminID    = int64(1000)
	testStaffGroup = int64(-100)
	testUserID     = int64(42)
	firstThreadID  = 500
)

type copyCall struct {
	to, from  int64
	threadID  int
	messageID int
}

type editCall struct {
	chatID    int64
	messageID int
	text      string
	markup    *models.InlineKeyboardMarkup
}

// harness runs the router against a real SQLite store and a recording platform mock.
type harness struct {
	t        *testing.T
	router   *Router
	store    database.Store
	settings *settings.Resolver
	cfg      *config.Config

	mu        sync.Mutex
	sent      []telegram.OutgoingText
	copies    []copyCall
	created   []string
	deleted   []int
	edits     []editCall
	markups   []editCall
	pins      []int
	answers   []string
	nextID    int
	nextTopic int

	sendErr        func(msg telegram.OutgoingText) error
	copyErr        func(call copyCall) error
	onCreateThread func()
}

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{
			Token:        "123:abc",
			AdminIDs:     []int64{testAdminID},
			StaffGroupID: testStaffGroup,
		},
		Server: config.ServerConfig{PublicURL: "https://relay.example/"},
		Relay: config.RelayConfig{
			MaxPatternLength:      config.DefaultMaxPatternLength,
			MaxMatchInput:         config.DefaultMaxMatchInput,
			MessageCacheRetention: config.DefaultMessageCacheRetention,
			ThreadTitleMaxLen:     config.DefaultThreadTitleMaxLen,
		},
		Messages: config.DefaultMessages,
		Defaults: map[string]string{},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := database.NewDB(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "handlers.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewStore(db, logger)
	cfg := testConfig()
	resolver := settings.NewResolver(store, cfg.Defaults, logger)

	h := &harness{
		t:         t,
		store:     store,
		settings:  resolver,
		cfg:       cfg,
		nextID:    1,
		nextTopic: firstThreadID,
	}

	ctrl := gomock.NewController(t)
	platform := mocks.NewMockClient(ctrl)
	platform.EXPECT().SendText(gomock.Any(), gomock.Any()).DoAndReturn(h.sendText).AnyTimes()
	platform.EXPECT().CopyMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(h.copyMessage).AnyTimes()
	platform.EXPECT().CreateThread(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(h.createThread).AnyTimes()
	platform.EXPECT().DeleteThread(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(h.deleteThread).AnyTimes()
	platform.EXPECT().EditText(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(h.editText).AnyTimes()
	platform.EXPECT().EditMarkup(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(h.editMarkup).AnyTimes()
	platform.EXPECT().Pin(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(h.pin).AnyTimes()
	platform.EXPECT().AnswerCallback(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(h.answer).AnyTimes()

	h.router = NewRouter(HandlerDeps{
		Logger:   logger,
		Config:   cfg,
		Store:    store,
		Settings: resolver,
		Platform: platform,
		Captures: store,
		Matcher:  filter.NewMatcher(cfg.Relay.MaxPatternLength, cfg.Relay.MaxMatchInput, logger),
	})
	return h
}

func (h *harness) sendText(_ context.Context, msg telegram.OutgoingText) (int, error) {
	if h.sendErr != nil {
		if err := h.sendErr(msg); err != nil {
			return 0, err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, msg)
	h.nextID++
	return h.nextID, nil
}

func (h *harness) copyMessage(_ context.Context, to int64, threadID int, from int64, messageID int) (int, error) {
	call := copyCall{to: to, threadID: threadID, from: from, messageID: messageID}
	if h.copyErr != nil {
		if err := h.copyErr(call); err != nil {
			return 0, err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.copies = append(h.copies, call)
	h.nextID++
	return h.nextID, nil
}

func (h *harness) createThread(_ context.Context, _ int64, name string) (int, error) {
	if h.onCreateThread != nil {
		h.onCreateThread()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = append(h.created, name)
	id := h.nextTopic
	h.nextTopic++
	return id, nil
}

func (h *harness) deleteThread(_ context.Context, _ int64, threadID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, threadID)
	return nil
}

func (h *harness) editText(_ context.Context, chatID int64, messageID int, text string, markup *models.InlineKeyboardMarkup) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.edits = append(h.edits, editCall{chatID: chatID, messageID: messageID, text: text, markup: markup})
	return nil
}

func (h *harness) editMarkup(_ context.Context, chatID int64, messageID int, markup *models.InlineKeyboardMarkup) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.markups = append(h.markups, editCall{chatID: chatID, messageID: messageID, markup: markup})
	return nil
}

func (h *harness) pin(_ context.Context, _ int64, messageID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pins = append(h.pins, messageID)
	return nil
}

func (h *harness) answer(_ context.Context, _ string, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.answers = append(h.answers, text)
	return nil
}

// reset forgets recorded calls.
func (h *harness) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent, h.copies, h.created, h.deleted = nil, nil, nil, nil
	h.edits, h.markups, h.pins, h.answers = nil, nil, nil, nil
}

// sentTo returns the texts sent to chatID.
func (h *harness) sentTo(chatID int64) []telegram.OutgoingText {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []telegram.OutgoingText
	for _, m := range h.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (h *harness) lastTextTo(chatID int64) string {
	msgs := h.sentTo(chatID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

func (h *harness) user(id int64) *database.User {
	h.t.Helper()
	u, err := h.store.GetUser(context.Background(), id)
	require.NoError(h.t, err)
	require.NotNil(h.t, u)
	return u
}

// verifiedUser creates a verified user, optionally past the first message.
func (h *harness) verifiedUser(id int64, firstSent bool) {
	h.t.Helper()
	ctx := context.Background()
	_, err := h.store.EnsureUser(ctx, id)
	require.NoError(h.t, err)
	require.NoError(h.t, h.store.SetState(ctx, id, database.StateVerified))
	if firstSent {
		require.NoError(h.t, h.store.MarkFirstMessageSent(ctx, id))
	}
}

func (h *harness) set(key, value string) {
	h.t.Helper()
	require.NoError(h.t, h.settings.Set(context.Background(), key, value))
}

func (h *harness) dispatch(update *models.Update) {
	h.router.Dispatch(context.Background(), update)
}

var messageSeq atomic.Int64

func nextMessageID() int {
	return int(messageSeq.Add(1)) + 100
}

func sender(id int64) *models.User {
	return &models.User{ID: id, FirstName: "Ann", LastName: "Lee", Username: "annlee"}
}

func privateMessage(from int64, text string) *models.Message {
	return &models.Message{
		ID:   nextMessageID(),
		From: sender(from),
		Chat: models.Chat{ID: from, Type: models.ChatTypePrivate},
		Text: text,
	}
}

func privateText(from int64, text string) *models.Update {
	return &models.Update{Message: privateMessage(from, text)}
}

func staffText(from int64, threadID int, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:              nextMessageID(),
		From:            &models.User{ID: from, FirstName: "Op"},
		Chat:            models.Chat{ID: testStaffGroup, Type: models.ChatTypeSupergroup},
		MessageThreadID: threadID,
		Text:            text,
	}}
}

func callback(from int64, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb-" + strings.ReplaceAll(data, ":", "-"),
		From: models.User{ID: from},
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: 77, Chat: models.Chat{ID: from, Type: models.ChatTypePrivate}},
		},
	}}
}

// inlineButtons flattens an inline keyboard.
func inlineButtons(markup models.ReplyMarkup) []models.InlineKeyboardButton {
	kb, ok := markup.(*models.InlineKeyboardMarkup)
	if !ok || kb == nil {
		return nil
	}
	var out []models.InlineKeyboardButton
	for _, row := range kb.InlineKeyboard {
		out = append(out, row...)
	}
	return out
}

package telegram_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/edgard/relaybot/internal/errors"
	"github.com/edgard/relaybot/internal/telegram"
)

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	mark := func(name string) telegram.Middleware {
		return func(next telegram.HandlerFunc) telegram.HandlerFunc {
			return func(ctx context.Context, update *models.Update) {
				calls = append(calls, name)
				next(ctx, update)
			}
		}
	}

	handler := telegram.Chain(func(context.Context, *models.Update) {
		calls = append(calls, "handler")
	}, mark("outer"), mark("inner"))

	handler(context.Background(), &models.Update{})
	assert.Equal(t, []string{"outer", "inner", "handler"}, calls)
}

func TestIsThreadGone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Nil", err: nil, want: false},
		{name: "Bad request thread", err: fmt.Errorf("%w, Bad Request: message thread not found", bot.ErrorBadRequest), want: true},
		{name: "Topic deleted", err: errors.New("Bad Request: TOPIC_DELETED"), want: true},
		{name: "Wrapped sentinel", err: apperrors.NewNotFoundError("copy", apperrors.ErrThreadNotFound), want: true},
		{name: "Topic closed", err: errors.New("Bad Request: TOPIC_CLOSED"), want: false},
		{name: "Forbidden", err: fmt.Errorf("%w, Forbidden: bot was blocked by the user", bot.ErrorForbidden), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, telegram.IsThreadGone(tt.err))
		})
	}
}

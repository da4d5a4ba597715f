package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/relaybot/internal/bot/tasks"
	"github.com/edgard/relaybot/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRegistersEnabledTasks(t *testing.T) {
	t.Parallel()

	noop := func(context.Context) error { return nil }
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
		"capture_expiry":  {Enabled: false, Schedule: "0 */10 * * * *"},
		"unregistered":    {Enabled: true, Schedule: "0 0 * * * *"},
		"no_schedule":     {Enabled: true},
		"bad_schedule":    {Enabled: true, Schedule: "every tuesday"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"sql_maintenance": noop,
		"capture_expiry":  noop,
		"no_schedule":     noop,
		"bad_schedule":    noop,
	}

	s, err := NewScheduler(discardLogger(), cfg, taskMap)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	assert.Equal(t, []string{"sql_maintenance"}, s.Jobs())
	assert.Error(t, s.Start(), "double start is rejected")
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(discardLogger(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestBotRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(discardLogger(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	server := runnerFunc(func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return nil
	})

	assert.NoError(t, NewBot(discardLogger(), server, s).Run(ctx))
}

func TestBotRunReportsServerFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("listen tcp: address in use")
	server := runnerFunc(func(context.Context) error { return boom })

	err := NewBot(discardLogger(), server, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

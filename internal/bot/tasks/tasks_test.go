package tasks

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
)

func newTestDeps(t *testing.T) TaskDeps {
	t.Helper()

	db, err := database.NewDB(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "tasks.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return TaskDeps{
		Logger: logger,
		Store:  database.NewStore(db, logger),
		Config: &config.Config{Redis: config.RedisConfig{CaptureTTL: time.Hour}},
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	registered := RegisterAllTasks(newTestDeps(t))

	assert.Len(t, registered, 2)
	assert.Contains(t, registered, TaskSQLMaintenance)
	assert.Contains(t, registered, TaskCaptureExpiry)
	for name := range registered {
		_, ok := config.DefaultTasks[name]
		assert.True(t, ok, "%s has a default schedule", name)
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	task := newSQLMaintenanceTask(newTestDeps(t))
	require.NoError(t, task(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, task(ctx))
}

func TestCaptureExpiryTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	deps := newTestDeps(t)

	require.NoError(t, deps.Store.SetCapture(ctx, &database.CaptureState{
		AdminID: 1, Action: database.CaptureEdit, TargetKey: "welcome_msg",
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}))
	require.NoError(t, deps.Store.SetCapture(ctx, &database.CaptureState{
		AdminID: 2, Action: database.CaptureAdd, TargetKey: "block_keywords",
	}))

	require.NoError(t, newCaptureExpiryTask(deps)(ctx))

	stale, err := deps.Store.GetCapture(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, stale)

	fresh, err := deps.Store.GetCapture(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}

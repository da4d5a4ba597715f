package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/edgard/relaybot/internal/errors"
)

const minimalYAML = `
telegram:
  token: "123:abc"
  admin_ids: [1000, 1001]
  staff_group_id: -100200
server:
  public_url: "https://relay.example"
verification:
  site_key: "site"
  secret_key: "secret"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig() *Config {
	return &Config{
		Logger:   LoggerConfig{Level: "info"},
		Telegram: TelegramConfig{Token: "t", AdminIDs: []int64{1}, StaffGroupID: -1},
		Server: ServerConfig{
			Address:         DefaultServerAddress,
			PublicURL:       "https://relay.example",
			UpdateTimeout:   DefaultServerUpdateTimeout,
			ShutdownTimeout: DefaultServerShutdownTimeout,
		},
		Verification: VerificationConfig{
			Endpoint:  DefaultVerificationEndpoint,
			SiteKey:   "site",
			SecretKey: "secret",
			Timeout:   DefaultVerificationTimeout,
		},
		Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
		Redis:    RedisConfig{CaptureTTL: DefaultRedisCaptureTTL},
		Relay: RelayConfig{
			MaxPatternLength:      DefaultMaxPatternLength,
			MaxMatchInput:         DefaultMaxMatchInput,
			MessageCacheRetention: DefaultMessageCacheRetention,
			ThreadTitleMaxLen:     DefaultThreadTitleMaxLen,
		},
		Messages: DefaultMessages,
		Defaults: map[string]string{},
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, []int64{1000, 1001}, cfg.Telegram.AdminIDs)
	assert.Equal(t, int64(-100200), cfg.Telegram.StaffGroupID)
	assert.True(t, cfg.Telegram.RegisterWebhook)
	assert.Equal(t, DefaultServerAddress, cfg.Server.Address)
	assert.Equal(t, DefaultServerUpdateTimeout, cfg.Server.UpdateTimeout)
	assert.Equal(t, DefaultVerificationEndpoint, cfg.Verification.Endpoint)
	assert.Equal(t, DefaultDBDriver, cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, DefaultMessageCacheRetention, cfg.Relay.MessageCacheRetention)
	assert.Equal(t, DefaultMessages, cfg.Messages)
	assert.NotNil(t, cfg.Defaults)
	for name, task := range DefaultTasks {
		assert.Equal(t, task, cfg.Scheduler.Tasks[name], name)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(writeConfig(t, `
telegram:
  token: "123:abc"
  admin_ids: [1000]
  staff_group_id: -100200
server:
  public_url: "https://relay.example"
  update_timeout: 30s
verification:
  site_key: "site"
  secret_key: "secret"
relay:
  thread_title_max_len: 64
defaults:
  welcome_msg: "Hello there"
messages:
  delivered: "📨"
`))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.UpdateTimeout)
	assert.Equal(t, 64, cfg.Relay.ThreadTitleMaxLen)
	assert.Equal(t, "Hello there", cfg.Defaults["welcome_msg"])
	assert.Equal(t, "📨", cfg.Messages.Delivered)
	assert.Equal(t, DefaultMessages.Blocked, cfg.Messages.Blocked)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "999:env")
	t.Setenv("BOT_TELEGRAM_WEBHOOK_SECRET", "hook")
	t.Setenv("BOT_DEFAULTS_VERIF_A", "42")

	cfg, err := LoadConfig(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "999:env", cfg.Telegram.Token)
	assert.Equal(t, "hook", cfg.Telegram.WebhookSecret)
	assert.Equal(t, "42", cfg.Defaults["verif_a"])
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing token", body: "telegram:\n  admin_ids: [1]\n  staff_group_id: -1\n"},
		{name: "malformed yaml", body: "telegram: [\n"},
		{name: "unknown runtime default", body: minimalYAML + "defaults:\n  no_such_key: x\n"},
		{name: "bad log level", body: minimalYAML + "logger:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "known default", mutate: func(c *Config) { c.Defaults["block_threshold"] = "3" }},
		{name: "unknown default", mutate: func(c *Config) { c.Defaults["colour"] = "red" }, wantErr: true},
		{name: "no admins", mutate: func(c *Config) { c.Telegram.AdminIDs = nil }, wantErr: true},
		{name: "zero staff group", mutate: func(c *Config) { c.Telegram.StaffGroupID = 0 }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Redis.Enabled = true }, wantErr: true},
		{name: "title too short", mutate: func(c *Config) { c.Relay.ThreadTitleMaxLen = 8 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.CodeConfig, apperrors.Code(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIsPrimaryOperator(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Telegram.AdminIDs = []int64{10, 20}

	assert.True(t, cfg.IsPrimaryOperator(20))
	assert.False(t, cfg.IsPrimaryOperator(30))
}

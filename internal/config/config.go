// Package config provides configuration loading, validation, and management
// for the relay bot. It reads a YAML file, BOT_* environment variables and an
// optional .env file, applies defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/edgard/relaybot/internal/errors"
	"github.com/edgard/relaybot/internal/settings"
)

// Config defines the application configuration parameters for all components.
type Config struct {
	Logger       LoggerConfig       `mapstructure:"logger"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Server       ServerConfig       `mapstructure:"server"`
	Verification VerificationConfig `mapstructure:"verification"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Relay        RelayConfig        `mapstructure:"relay"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Messages     MessagesConfig     `mapstructure:"messages"`

	// Defaults is the environment layer of the runtime settings, keyed by
	// settings key (e.g. welcome_msg).
	Defaults map[string]string `mapstructure:"defaults"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
	// AdminIDs are the primary operators; they may edit runtime settings.
	AdminIDs     []int64 `mapstructure:"admin_ids"      validate:"required,min=1,dive,gt=0"`
	StaffGroupID int64   `mapstructure:"staff_group_id" validate:"required,ne=0"`
	APIURL       string  `mapstructure:"api_url"        validate:"omitempty,url"`
	// RegisterWebhook points the Bot API at <public_url>/ on startup.
	RegisterWebhook bool `mapstructure:"register_webhook"`
	// WebhookSecret is echoed by the Bot API in X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret string `mapstructure:"webhook_secret" validate:"omitempty,max=256"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"          validate:"required"`
	PublicURL       string        `mapstructure:"public_url"       validate:"required,url"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	UpdateTimeout   time.Duration `mapstructure:"update_timeout"   validate:"min=1s,max=10m"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

type VerificationConfig struct {
	Endpoint        string        `mapstructure:"endpoint"          validate:"required,url"`
	SiteKey         string        `mapstructure:"site_key"          validate:"required"`
	SecretKey       string        `mapstructure:"secret_key"        validate:"required"`
	Timeout         time.Duration `mapstructure:"timeout"           validate:"min=1s,max=1m"`
	RequireInitData bool          `mapstructure:"require_init_data"`
	InitDataTTL     time.Duration `mapstructure:"init_data_ttl"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path   string `mapstructure:"path"   validate:"required_if=Driver sqlite"`
	DSN    string `mapstructure:"dsn"    validate:"required_if=Driver postgres"`
}

type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"        validate:"required_if=Enabled true"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"          validate:"min=0"`
	CaptureTTL time.Duration `mapstructure:"capture_ttl" validate:"min=1m"`
}

type RelayConfig struct {
	MaxPatternLength      int `mapstructure:"max_pattern_length"      validate:"min=1"`
	MaxMatchInput         int `mapstructure:"max_match_input"         validate:"min=1"`
	MessageCacheRetention int `mapstructure:"message_cache_retention" validate:"min=1"`
	ThreadTitleMaxLen     int `mapstructure:"thread_title_max_len"    validate:"min=16,max=128"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds the fixed user-facing texts. Editable texts live in
// the runtime settings instead.
type MessagesConfig struct {
	VerifyButton       string `mapstructure:"verify_button"        validate:"required"`
	ChallengePassed    string `mapstructure:"challenge_passed"     validate:"required"`
	QAWrong            string `mapstructure:"qa_wrong"             validate:"required"`
	Verified           string `mapstructure:"verified"             validate:"required"`
	AlreadyVerified    string `mapstructure:"already_verified"     validate:"required"`
	Blocked            string `mapstructure:"blocked"              validate:"required"`
	BlockWarningFmt    string `mapstructure:"block_warning_fmt"    validate:"required"`
	FirstMessageText   string `mapstructure:"first_message_text"   validate:"required"`
	CategoryRejectFmt  string `mapstructure:"category_reject_fmt"  validate:"required"`
	Delivered          string `mapstructure:"delivered"            validate:"required"`
	DeliveryFailed     string `mapstructure:"delivery_failed"      validate:"required"`
	SessionExpired     string `mapstructure:"session_expired"      validate:"required"`
	StaffDelivered     string `mapstructure:"staff_delivered"      validate:"required"`
	StaffFailedFmt     string `mapstructure:"staff_failed_fmt"     validate:"required"`
	StaffUnknownThread string `mapstructure:"staff_unknown_thread" validate:"required"`
	NotAuthorized      string `mapstructure:"not_authorized"       validate:"required"`
	ConfigSaved        string `mapstructure:"config_saved"         validate:"required"`
	ConfigCancelled    string `mapstructure:"config_cancelled"     validate:"required"`
	ConfigPromptFmt    string `mapstructure:"config_prompt_fmt"    validate:"required"`
	GeneralError       string `mapstructure:"general_error"        validate:"required"`
}

// IsPrimaryOperator reports whether userID is one of the configured admins.
func (c *Config) IsPrimaryOperator(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// envOnlyKeys have no default but must still be readable from BOT_* variables.
var envOnlyKeys = []string{
	"telegram.token",
	"telegram.admin_ids",
	"telegram.staff_group_id",
	"telegram.api_url",
	"telegram.webhook_secret",
	"server.public_url",
	"verification.site_key",
	"verification.secret_key",
	"database.dsn",
	"redis.addr",
	"redis.password",
}

// LoadConfig reads configuration from configPath (optional), a .env file
// (optional) and BOT_* environment variables, then validates it.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	for _, key := range settings.Keys() {
		if err := v.BindEnv("defaults." + key.Name); err != nil {
			return nil, fmt.Errorf("failed to bind env for default %s: %w", key.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		slog.Info("Configuration file not found, using defaults and environment", "path", configPath)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to parse config", err)
	}
	if cfg.Defaults == nil {
		cfg.Defaults = map[string]string{}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct constraints and the runtime defaults.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}
	for key := range cfg.Defaults {
		if _, ok := settings.Lookup(key); !ok {
			return apperrors.NewConfigError(fmt.Sprintf("unknown runtime default %q", key), nil)
		}
	}
	return nil
}

package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultServerAddress         = ":8080"
	DefaultServerUpdateTimeout   = time.Minute
	DefaultServerShutdownTimeout = 15 * time.Second

	DefaultVerificationEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	DefaultVerificationTimeout  = 10 * time.Second
	DefaultInitDataTTL          = 24 * time.Hour

	DefaultDBDriver = "sqlite"
	DefaultDBPath   = "storage.db"

	DefaultRedisCaptureTTL = 30 * time.Minute

	DefaultMaxPatternLength      = 512
	DefaultMaxMatchInput         = 4096
	DefaultMessageCacheRetention = 1
	DefaultThreadTitleMaxLen     = 128
)

// DefaultMessages are the fixed user-facing texts.
var DefaultMessages = MessagesConfig{
	VerifyButton:       "🔐 Verify",
	ChallengePassed:    "✅ Challenge passed. One last question:\n\n%s",
	QAWrong:            "❌ Incorrect answer, please try again.",
	Verified:           "✅ Verification complete! You can now send your messages.",
	AlreadyVerified:    "✅ You are verified. Just send your message.",
	Blocked:            "🚫 You have been blocked.",
	BlockWarningFmt:    "⚠️ Your message contains forbidden content and was not delivered. %d attempt(s) left before you are blocked.",
	FirstMessageText:   "ℹ️ Your first message must be plain text without attachments.",
	CategoryRejectFmt:  "🚫 %s are not accepted.",
	Delivered:          "✅ Delivered",
	DeliveryFailed:     "❌ Your message could not be delivered. Please try again later.",
	SessionExpired:     "⌛ Your session expired. Please send your message again.",
	StaffDelivered:     "✅ Delivered to user",
	StaffFailedFmt:     "❌ Delivery failed: %s",
	StaffUnknownThread: "⚠️ No user is linked to this thread.",
	NotAuthorized:      "🚫 Access denied.",
	ConfigSaved:        "✅ Saved.",
	ConfigCancelled:    "❎ Cancelled.",
	ConfigPromptFmt:    "✏️ Send the new value for <b>%s</b>.\n\nCurrent value:\n<code>%s</code>\n\nSend /cancel to abort.",
	GeneralError:       "❌ An error occurred. Please try again later.",
}

// DefaultTasks are the maintenance jobs run by the scheduler.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	"capture_expiry":  {Enabled: true, Schedule: "0 */10 * * * *"},
}

// setDefaults sets default values for optional configuration parameters
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("telegram.register_webhook", true)

	v.SetDefault("server.address", DefaultServerAddress)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.update_timeout", DefaultServerUpdateTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	v.SetDefault("verification.endpoint", DefaultVerificationEndpoint)
	v.SetDefault("verification.timeout", DefaultVerificationTimeout)
	v.SetDefault("verification.require_init_data", false)
	v.SetDefault("verification.init_data_ttl", DefaultInitDataTTL)

	v.SetDefault("database.driver", DefaultDBDriver)
	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.capture_ttl", DefaultRedisCaptureTTL)

	v.SetDefault("relay.max_pattern_length", DefaultMaxPatternLength)
	v.SetDefault("relay.max_match_input", DefaultMaxMatchInput)
	v.SetDefault("relay.message_cache_retention", DefaultMessageCacheRetention)
	v.SetDefault("relay.thread_title_max_len", DefaultThreadTitleMaxLen)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	m := DefaultMessages
	v.SetDefault("messages.verify_button", m.VerifyButton)
	v.SetDefault("messages.challenge_passed", m.ChallengePassed)
	v.SetDefault("messages.qa_wrong", m.QAWrong)
	v.SetDefault("messages.verified", m.Verified)
	v.SetDefault("messages.already_verified", m.AlreadyVerified)
	v.SetDefault("messages.blocked", m.Blocked)
	v.SetDefault("messages.block_warning_fmt", m.BlockWarningFmt)
	v.SetDefault("messages.first_message_text", m.FirstMessageText)
	v.SetDefault("messages.category_reject_fmt", m.CategoryRejectFmt)
	v.SetDefault("messages.delivered", m.Delivered)
	v.SetDefault("messages.delivery_failed", m.DeliveryFailed)
	v.SetDefault("messages.session_expired", m.SessionExpired)
	v.SetDefault("messages.staff_delivered", m.StaffDelivered)
	v.SetDefault("messages.staff_failed_fmt", m.StaffFailedFmt)
	v.SetDefault("messages.staff_unknown_thread", m.StaffUnknownThread)
	v.SetDefault("messages.not_authorized", m.NotAuthorized)
	v.SetDefault("messages.config_saved", m.ConfigSaved)
	v.SetDefault("messages.config_cancelled", m.ConfigCancelled)
	v.SetDefault("messages.config_prompt_fmt", m.ConfigPromptFmt)
	v.SetDefault("messages.general_error", m.GeneralError)
}

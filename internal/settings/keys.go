// Package settings resolves the runtime-tunable configuration of the relay:
// persisted value first, then the environment default, then the compiled-in default.
package settings

// Kind describes how a runtime key is stored and edited.
type Kind int

const (
	KindText Kind = iota
	KindBool
	KindInt
	KindList
)

// Runtime configuration keys.
const (
	KeyWelcomeMsg     = "welcome_msg"
	KeyVerifQuestion  = "verif_q"
	KeyVerifAnswer    = "verif_a"
	KeyBlockThreshold = "block_threshold"

	KeyAllowForwarded      = "allow_forwarded"
	KeyAllowChannelForward = "allow_channel_forward"
	KeyAllowAudio          = "allow_audio"
	KeyAllowSticker        = "allow_sticker"
	KeyAllowMedia          = "allow_media"
	KeyAllowLink           = "allow_link"
	KeyAllowText           = "allow_text"

	KeyOperators    = "authorized_admins"
	KeyBlockWords   = "block_keywords"
	KeyAutoReplies  = "keyword_responses"
	KeyBackupGroup  = "backup_group_id"
	KeyAdminReceipt = "enable_admin_receipt"
)

// Key describes one runtime setting.
type Key struct {
	Name    string
	Label   string
	Kind    Kind
	Default string
}

const defaultWelcome = "👋 Welcome! This bot forwards your messages to our team.\n\n" +
	"Please complete the verification below before writing."

var registry = []Key{
	{Name: KeyWelcomeMsg, Label: "Welcome text", Kind: KindText, Default: defaultWelcome},
	{Name: KeyVerifQuestion, Label: "Verification question", Kind: KindText, Default: "What is 1 + 2?"},
	{Name: KeyVerifAnswer, Label: "Verification answer", Kind: KindText, Default: "3"},
	{Name: KeyBlockThreshold, Label: "Block threshold", Kind: KindInt, Default: "5"},

	{Name: KeyAllowForwarded, Label: "Forwarded messages", Kind: KindBool, Default: "true"},
	{Name: KeyAllowChannelForward, Label: "Channel forwards", Kind: KindBool, Default: "true"},
	{Name: KeyAllowAudio, Label: "Audio & voice", Kind: KindBool, Default: "true"},
	{Name: KeyAllowSticker, Label: "Stickers & GIFs", Kind: KindBool, Default: "true"},
	{Name: KeyAllowMedia, Label: "Photos, videos & files", Kind: KindBool, Default: "true"},
	{Name: KeyAllowLink, Label: "Links", Kind: KindBool, Default: "true"},
	{Name: KeyAllowText, Label: "Plain text", Kind: KindBool, Default: "true"},

	{Name: KeyOperators, Label: "Operators", Kind: KindList, Default: "[]"},
	{Name: KeyBlockWords, Label: "Blocked keywords", Kind: KindList, Default: "[]"},
	{Name: KeyAutoReplies, Label: "Auto-replies", Kind: KindList, Default: "[]"},
	{Name: KeyBackupGroup, Label: "Backup chat id", Kind: KindText, Default: ""},
	{Name: KeyAdminReceipt, Label: "Staff delivery receipts", Kind: KindBool, Default: "true"},
}

var byName = func() map[string]Key {
	m := make(map[string]Key, len(registry))
	for _, k := range registry {
		m[k.Name] = k
	}
	return m
}()

// Keys returns every runtime key in display order.
func Keys() []Key {
	out := make([]Key, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the description of a runtime key.
func Lookup(name string) (Key, bool) {
	k, ok := byName[name]
	return k, ok
}

// IsList reports whether name is a list-typed key.
func IsList(name string) bool {
	k, ok := byName[name]
	return ok && k.Kind == KindList
}

package handlers

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	"github.com/edgard/relaybot/internal/settings"
)

// Admin action tokens have the form cfg:<op>[:<key>[:<index>]].
const (
	adminPrefix = "cfg:"

	opRoot   = "root"
	opNav    = "nav"
	opToggle = "toggle"
	opEdit   = "edit"
	opAdd    = "add"
	opDel    = "del"
	opClear  = "clear"
)

// Submenus.
const (
	menuRoot      = "root"
	menuTexts     = "texts"
	menuFilters   = "filters"
	menuOperators = "operators"
	menuBlocklist = "blocklist"
	menuAutoReply = "autoreply"
	menuBackup    = "backup"
)

const menuValuePreview = 200

type menuSection struct {
	name  string
	title string
	keys  []string
}

var menuSections = []menuSection{
	{name: menuTexts, title: "📝 Texts", keys: []string{
		settings.KeyWelcomeMsg, settings.KeyVerifQuestion, settings.KeyVerifAnswer, settings.KeyBlockThreshold,
	}},
	{name: menuFilters, title: "🧰 Content filters", keys: []string{
		settings.KeyAllowForwarded, settings.KeyAllowChannelForward, settings.KeyAllowAudio,
		settings.KeyAllowSticker, settings.KeyAllowMedia, settings.KeyAllowLink, settings.KeyAllowText,
	}},
	{name: menuOperators, title: "👮 Operators", keys: []string{settings.KeyOperators}},
	{name: menuBlocklist, title: "⛔ Blocked keywords", keys: []string{settings.KeyBlockWords}},
	{name: menuAutoReply, title: "💬 Auto-replies", keys: []string{settings.KeyAutoReplies}},
	{name: menuBackup, title: "🗄 Backup", keys: []string{settings.KeyBackupGroup, settings.KeyAdminReceipt}},
}

// adminAction is a decoded action token.
type adminAction struct {
	op    string
	key   string
	index int
}

func (a adminAction) token() string {
	switch {
	case a.op == opRoot:
		return adminPrefix + opRoot
	case a.op == opDel:
		return fmt.Sprintf("%s%s:%s:%d", adminPrefix, a.op, a.key, a.index)
	default:
		return adminPrefix + a.op + ":" + a.key
	}
}

// parseAdminAction decodes a cfg: token and checks its operands.
func parseAdminAction(data string) (adminAction, error) {
	if !strings.HasPrefix(data, adminPrefix) {
		return adminAction{}, fmt.Errorf("not an admin action: %q", data)
	}
	parts := strings.Split(strings.TrimPrefix(data, adminPrefix), ":")
	a := adminAction{op: parts[0]}

	switch a.op {
	case opRoot:
		if len(parts) != 1 {
			return adminAction{}, fmt.Errorf("malformed root action %q", data)
		}
		return a, nil

	case opNav:
		if len(parts) != 2 || sectionByName(parts[1]) == nil {
			return adminAction{}, fmt.Errorf("unknown submenu in %q", data)
		}
		a.key = parts[1]
		return a, nil

	case opToggle, opEdit, opAdd, opClear, opDel:
		if len(parts) < 2 {
			return adminAction{}, fmt.Errorf("missing key in %q", data)
		}
		key, ok := settings.Lookup(parts[1])
		if !ok {
			return adminAction{}, fmt.Errorf("unknown key in %q", data)
		}
		a.key = key.Name

		switch {
		case a.op == opToggle && key.Kind != settings.KindBool,
			a.op == opEdit && key.Kind == settings.KindBool,
			a.op == opAdd && key.Kind != settings.KindList,
			a.op == opDel && key.Kind != settings.KindList,
			a.op == opClear && key.Kind != settings.KindList && key.Name != settings.KeyBackupGroup:
			return adminAction{}, fmt.Errorf("action %s not applicable to %s", a.op, a.key)
		}

		if a.op == opDel {
			if len(parts) != 3 {
				return adminAction{}, fmt.Errorf("missing index in %q", data)
			}
			idx, err := strconv.Atoi(parts[2])
			if err != nil || idx < 0 {
				return adminAction{}, fmt.Errorf("invalid index in %q", data)
			}
			a.index = idx
		} else if len(parts) != 2 {
			return adminAction{}, fmt.Errorf("malformed action %q", data)
		}
		return a, nil
	}
	return adminAction{}, fmt.Errorf("unknown op in %q", data)
}

func sectionByName(name string) *menuSection {
	for i := range menuSections {
		if menuSections[i].name == name {
			return &menuSections[i]
		}
	}
	return nil
}

// sectionOf returns the submenu showing key.
func sectionOf(key string) string {
	for _, s := range menuSections {
		if lo.Contains(s.keys, key) {
			return s.name
		}
	}
	return menuRoot
}

// snapshotSettings reads the effective value of every runtime key.
func snapshotSettings(ctx context.Context, r *settings.Resolver) map[string]string {
	values := make(map[string]string, len(settings.Keys()))
	for _, k := range settings.Keys() {
		values[k.Name] = r.String(ctx, k.Name)
	}
	return values
}

// renderMenu is a pure function of the menu name and the settings snapshot.
func renderMenu(menu string, values map[string]string) (string, *models.InlineKeyboardMarkup) {
	if menu == menuRoot {
		rows := lo.Map(menuSections, func(s menuSection, _ int) []models.InlineKeyboardButton {
			return []models.InlineKeyboardButton{button(s.title, adminAction{op: opNav, key: s.name})}
		})
		return "⚙️ <b>Bot configuration</b>\n\nChoose a section.", keyboard(rows)
	}

	section := sectionByName(menu)
	if section == nil {
		return renderMenu(menuRoot, values)
	}

	var (
		text strings.Builder
		rows [][]models.InlineKeyboardButton
	)
	fmt.Fprintf(&text, "<b>%s</b>\n\n", html.EscapeString(section.title))

	switch menu {
	case menuTexts:
		for _, name := range section.keys {
			key, _ := settings.Lookup(name)
			fmt.Fprintf(&text, "<b>%s:</b>\n<blockquote>%s</blockquote>\n", html.EscapeString(key.Label), preview(values[name]))
			rows = append(rows, []models.InlineKeyboardButton{button("✏️ "+key.Label, adminAction{op: opEdit, key: name})})
		}

	case menuFilters:
		text.WriteString("Tap a category to allow or reject it.")
		for _, name := range section.keys {
			key, _ := settings.Lookup(name)
			rows = append(rows, []models.InlineKeyboardButton{button(onOff(values[name])+" "+key.Label, adminAction{op: opToggle, key: name})})
		}

	case menuOperators, menuBlocklist, menuAutoReply:
		name := section.keys[0]
		entries := settings.DecodeList(values[name])
		if len(entries) == 0 {
			text.WriteString("<i>No entries.</i>")
		}
		for i, entry := range entries {
			fmt.Fprintf(&text, "%d. <code>%s</code>\n", i+1, preview(entry))
		}
		deletes := lo.Map(entries, func(_ string, i int) models.InlineKeyboardButton {
			return button(fmt.Sprintf("🗑 %d", i+1), adminAction{op: opDel, key: name, index: i})
		})
		rows = append(rows, lo.Chunk(deletes, 4)...)
		rows = append(rows,
			[]models.InlineKeyboardButton{
				button("➕ Add", adminAction{op: opAdd, key: name}),
				button("✏️ Replace all", adminAction{op: opEdit, key: name}),
			},
			[]models.InlineKeyboardButton{button("🧹 Clear", adminAction{op: opClear, key: name})},
		)

	case menuBackup:
		backup := strings.TrimSpace(values[settings.KeyBackupGroup])
		if backup == "" {
			text.WriteString("Backup chat: <i>off</i>\n")
		} else {
			fmt.Fprintf(&text, "Backup chat: <code>%s</code>\n", html.EscapeString(backup))
		}
		fmt.Fprintf(&text, "Staff delivery receipts: %s", onOff(values[settings.KeyAdminReceipt]))
		rows = append(rows,
			[]models.InlineKeyboardButton{
				button("✏️ Backup chat id", adminAction{op: opEdit, key: settings.KeyBackupGroup}),
				button("🧹 Disable backup", adminAction{op: opClear, key: settings.KeyBackupGroup}),
			},
			[]models.InlineKeyboardButton{
				button(onOff(values[settings.KeyAdminReceipt])+" Staff delivery receipts", adminAction{op: opToggle, key: settings.KeyAdminReceipt}),
			},
		)
	}

	rows = append(rows, []models.InlineKeyboardButton{button("⬅️ Back", adminAction{op: opRoot})})
	return strings.TrimRight(text.String(), "\n"), keyboard(rows)
}

func button(label string, a adminAction) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: label, CallbackData: a.token()}
}

func keyboard(rows [][]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func onOff(raw string) string {
	if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil && b {
		return "✅"
	}
	return "❌"
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > menuValuePreview {
		s = string(r[:menuValuePreview]) + "…"
	}
	if strings.TrimSpace(s) == "" {
		return "<i>empty</i>"
	}
	return html.EscapeString(s)
}

package handlers

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
)

const unknownText = "unknown"

// displayName returns the user's full name, then @username, then a placeholder.
func displayName(u *models.User) string {
	if u == nil {
		return "User"
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "User"
}

// threadTitle renders "<name> | <id>" within maxLen runes, truncating the name.
func threadTitle(name string, userID int64, maxLen int) string {
	suffix := " | " + strconv.FormatInt(userID, 10)
	budget := maxLen - len([]rune(suffix))
	runes := []rune(strings.TrimSpace(name))
	if budget <= 0 {
		return strings.TrimPrefix(suffix, " | ")
	}
	if len(runes) > budget {
		if budget > 1 {
			runes = append(runes[:budget-1], '…')
		} else {
			runes = runes[:budget]
		}
	}
	return string(runes) + suffix
}

// identityHeader is a one-line HTML summary of the sender.
func identityHeader(u *models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s</b>", html.EscapeString(displayName(u)))
	if u != nil && u.Username != "" {
		fmt.Fprintf(&b, " (@%s)", html.EscapeString(u.Username))
	}
	if u != nil {
		fmt.Fprintf(&b, " · <code>%d</code>", u.ID)
	}
	return b.String()
}

// profileCard renders the identity summary posted once into a new thread.
func profileCard(u *models.User, user *database.User) string {
	var b strings.Builder
	b.WriteString("🪪 <b>User profile</b>\n\n")
	fmt.Fprintf(&b, "<b>Name:</b> %s\n", html.EscapeString(displayName(u)))
	if u != nil && u.Username != "" {
		fmt.Fprintf(&b, "<b>Username:</b> @%s\n", html.EscapeString(u.Username))
	} else {
		b.WriteString("<b>Username:</b> —\n")
	}
	fmt.Fprintf(&b, "<b>ID:</b> <code>%d</code>\n", user.ID)
	if u != nil && u.LanguageCode != "" {
		fmt.Fprintf(&b, "<b>Language:</b> %s\n", html.EscapeString(u.LanguageCode))
	}
	if u != nil && u.IsPremium {
		b.WriteString("<b>Premium:</b> yes\n")
	}
	first := user.CreatedAt
	if user.FirstContactAt.Valid {
		first = user.FirstContactAt.Time
	}
	fmt.Fprintf(&b, "<b>First contact:</b> %s", first.UTC().Format("2006-01-02 15:04 MST"))
	return b.String()
}

// storedProfileCard renders the card from the persisted snapshot.
func storedProfileCard(user *database.User) string {
	var b strings.Builder
	b.WriteString("🪪 <b>User profile</b>\n\n")
	name := "User"
	if user.ProfileName.Valid && user.ProfileName.String != "" {
		name = user.ProfileName.String
	}
	fmt.Fprintf(&b, "<b>Name:</b> %s\n", html.EscapeString(name))
	if user.ProfileUsername.Valid && user.ProfileUsername.String != "" {
		fmt.Fprintf(&b, "<b>Username:</b> @%s\n", html.EscapeString(user.ProfileUsername.String))
	}
	fmt.Fprintf(&b, "<b>ID:</b> <code>%d</code>\n", user.ID)
	fmt.Fprintf(&b, "<b>State:</b> %s\n", user.State)
	fmt.Fprintf(&b, "<b>Blocked:</b> %t (strikes: %d)\n", user.IsBlocked, user.BlockCount)
	if user.FirstContactAt.Valid {
		fmt.Fprintf(&b, "<b>First contact:</b> %s", user.FirstContactAt.Time.UTC().Format(time.DateTime))
	}
	return strings.TrimRight(b.String(), "\n")
}

// editNotice renders the before/after notice posted when a user edits a message.
func editNotice(before, after string) string {
	if before == "" {
		before = unknownText
	}
	return fmt.Sprintf("✏️ <b>Message edited</b>\n\n<b>Before:</b>\n<blockquote>%s</blockquote>\n<b>After:</b>\n<blockquote>%s</blockquote>",
		html.EscapeString(before), html.EscapeString(after))
}

// cardKeyboard is the inline control row under a profile card.
func cardKeyboard(userID int64, blocked bool) *models.InlineKeyboardMarkup {
	blockLabel := "🚫 Block"
	if blocked {
		blockLabel = "✅ Unblock"
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: blockLabel, CallbackData: fmt.Sprintf("%s%s:%d", cardPrefix, cardActionBlock, userID)},
			{Text: "📌 Pin", CallbackData: fmt.Sprintf("%s%s:%d", cardPrefix, cardActionPin, userID)},
		}},
	}
}

// messageText returns the text or caption of msg.
func messageText(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

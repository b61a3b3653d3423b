package relay

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

// maxThreadName is the platform limit on thread names.
const maxThreadName = 100

// formatLine renders "**label:** content", or "" when there is no text.
func formatLine(label, content string) string {
	if content == "" {
		return ""
	}
	return "**" + label + ":** " + content
}

// formatEdit renders an edit as the struck-through previous text above the
// new text. Without previous text it degrades to formatLine.
func formatEdit(label, before, after string) string {
	if before == "" {
		return formatLine(label, after)
	}
	return "**" + label + ":** ~~" + before + "~~\n\n" + after
}

// withStickers appends sticker names as a bracketed annotation.
func withStickers(content string, stickers []string) string {
	if len(stickers) == 0 {
		return content
	}
	note := "[Sticker(s): " + strings.Join(stickers, ", ") + "]"
	if content == "" {
		return note
	}
	return content + "\n" + note
}

// modeTitle returns "Anonymous" or "Identified".
func modeTitle(m domain.IdentityMode) string {
	// Casers are stateful; one per call.
	return cases.Title(language.English).String(string(m))
}

// threadName names a new ticket thread. Identified tickets carry the
// user's display name.
func threadName(mode domain.IdentityMode, displayName string) string {
	if mode == domain.ModeAnonymous {
		return AnonymousThreadName
	}
	name := displayName + "'s Ticket"
	if utf8.RuneCountInString(name) <= maxThreadName {
		return name
	}
	suffix := "…'s Ticket"
	keep := maxThreadName - utf8.RuneCountInString(suffix)
	return string([]rune(displayName)[:keep]) + suffix
}

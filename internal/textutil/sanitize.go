package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameBytes caps a sanitized name so keys stay well under filesystem
// name limits once character, clip id and extension are added.
const MaxNameBytes = 64

// SanitizeFileName makes a player name or connect code safe to embed in a
// file name. Path separators and the characters reserved on common
// filesystems become '-' or are removed, control characters are dropped,
// whitespace collapses to a single space, and leading or trailing dots and
// spaces are trimmed. Multi-byte names are cut on a rune boundary.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	space := false
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '|':
			r = '-'
		case r == '?' || r == '"' || r == '<' || r == '>':
			continue
		case r == utf8.RuneError || unicode.IsControl(r) && !unicode.IsSpace(r):
			continue
		case unicode.IsSpace(r):
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), ". ")
	if len(out) <= MaxNameBytes {
		return out
	}
	cut := MaxNameBytes
	for cut > 0 && !utf8.RuneStart(out[cut]) {
		cut--
	}
	return strings.TrimRight(out[:cut], ". ")
}

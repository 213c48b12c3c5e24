package recognizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize cleans up a raw backend transcription for presentation: trims
// surrounding whitespace, capitalizes the first letter, and appends a period
// when no terminal punctuation is present. An empty or whitespace-only input
// normalizes to the empty string.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(text)
	if unicode.IsLower(r) {
		text = string(unicode.ToUpper(r)) + text[size:]
	}

	switch text[len(text)-1] {
	case '.', '!', '?':
	default:
		text += "."
	}
	return text
}

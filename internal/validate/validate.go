// Package validate holds the input gates applied before any network call.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Default bounds.
const (
	DefaultMaxVoiceSecs = 60
	DefaultMinTextLen   = 5
	DefaultMaxTextLen   = 1000
)

// VoiceDuration checks a voice note's reported duration in seconds against
// [1, maxSecs]. It returns an empty string when the duration is accepted.
func VoiceDuration(durationSecs, maxSecs int) string {
	if durationSecs > maxSecs {
		return fmt.Sprintf("Голосовое сообщение слишком длинное. Максимальная длительность: %d секунд", maxSecs)
	}
	if durationSecs < 1 {
		return "Голосовое сообщение слишком короткое"
	}
	return ""
}

// TextLength checks the trimmed rune length of text against [minLen, maxLen].
// It returns an empty string when the text is accepted.
func TextLength(text string, minLen, maxLen int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Текст не может быть пустым"
	}

	n := utf8.RuneCountInString(text)
	if n < minLen {
		return fmt.Sprintf("Текст слишком короткий. Минимальная длина: %d символов", minLen)
	}
	if n > maxLen {
		return fmt.Sprintf("Текст слишком длинный. Максимальная длина: %d символов", maxLen)
	}
	return ""
}

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "«", `"`, "»", `"`,
	"‘", "'", "’", "'",
)

// Sanitize normalizes text to NFC, replaces typographic quotes with ASCII
// ones and collapses runs of whitespace.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFC.String(text)
	text = quoteReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

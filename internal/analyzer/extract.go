package analyzer

import (
	"regexp"
	"strings"
)

// ExtractSection returns the text following label up to the first of
// nextLabels (or the end of reply). Matching is case-insensitive. Markdown
// emphasis around the body and a repeated leading label are removed. The
// result is empty when label does not occur.
func ExtractSection(reply, label string, nextLabels ...string) string {
	loc := findFold(reply, label, 0)
	if loc == nil {
		return ""
	}
	start := loc[1]

	// Skip the closing emphasis of a "**Label:**" heading so it is not taken
	// for a terminator.
	for start < len(reply) && strings.ContainsRune("* \t\r\n_", rune(reply[start])) {
		start++
	}

	end := len(reply)
	for _, next := range nextLabels {
		if next == "" {
			continue
		}
		if l := findFold(reply, next, start); l != nil && l[0] < end {
			end = l[0]
		}
	}

	body := trimEmphasis(reply[start:end])
	if l := findFold(body, label, 0); l != nil && l[0] == 0 {
		body = trimEmphasis(body[l[1]:])
	}
	return body
}

// findFold finds the first case-insensitive occurrence of needle in s at or
// after offset and returns its absolute byte range.
func findFold(s, needle string, offset int) []int {
	if offset > len(s) {
		return nil
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(needle))
	loc := re.FindStringIndex(s[offset:])
	if loc == nil {
		return nil
	}
	return []int{loc[0] + offset, loc[1] + offset}
}

func trimEmphasis(s string) string {
	return strings.Trim(s, "*_ \t\r\n")
}

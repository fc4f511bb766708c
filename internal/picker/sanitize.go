package picker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// ansiRE matches ANSI escape sequences, so a candidate name carrying stray
// color codes (e.g. copied out of a terminal) renders cleanly in the list.
var ansiRE = regexp.MustCompile(`\x1b(?:\[[0-9;]*[A-Za-z]|\].*?(?:\x1b\\|\x07)|[()][A-B0-2]|[#()*+\-./][A-Za-z0-9])`)

// StripANSI removes ANSI escape sequences from a string.
func StripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// ValidateUTF8 replaces invalid UTF-8 byte sequences with the replacement
// character, so a malformed script name can't corrupt the terminal.
func ValidateUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			b.WriteRune(utf8.RuneError)
			i++
		} else {
			b.WriteRune(r)
			i += size
		}
	}
	return b.String()
}

// MiddleTruncate truncates s in the middle with an ellipsis when its display
// width exceeds maxWidth, correctly handling double-width runes.
func MiddleTruncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}

	const ellipsis = "…"
	if maxWidth < 3 {
		return runewidthTruncate(s, maxWidth)
	}

	remaining := maxWidth - 1
	headWidth := (remaining + 1) / 2
	tailWidth := remaining / 2

	return runewidthTruncate(s, headWidth) + ellipsis + runewidthTruncateRight(s, tailWidth)
}

func runewidthTruncate(s string, maxWidth int) string {
	w := 0
	for i, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > maxWidth {
			return s[:i]
		}
		w += rw
	}
	return s
}

func runewidthTruncateRight(s string, maxWidth int) string {
	runes := []rune(s)
	w := 0
	start := len(runes)
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if w+rw > maxWidth {
			break
		}
		w += rw
		start = i
	}
	return string(runes[start:])
}

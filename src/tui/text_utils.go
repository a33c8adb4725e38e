package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, accounting for wide runes.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate cuts s to maxLen display columns, ending in "..." when ellipsis is
// set and there is room for it.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return runewidth.Truncate(s, maxLen-3, "") + "..."
	}
	return runewidth.Truncate(s, maxLen, "")
}

// TruncateAndPad truncates s and pads it to exactly width columns, so table
// cells line up.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	s = Truncate(s, width, ellipsis)
	if pad := width - VisualWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// Wrap breaks text into lines of at most width columns, on word boundaries
// where possible. Words wider than a line (URLs, build numbers) are split.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0

	flush := func() {
		if lineWidth > 0 {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
	}

	for _, word := range words {
		for VisualWidth(word) > width {
			flush()
			chunk := runewidth.Truncate(word, width, "")
			if chunk == "" {
				// A single rune wider than the line.
				chunk = string([]rune(word)[:1])
			}
			lines = append(lines, chunk)
			word = word[len(chunk):]
		}
		if word == "" {
			continue
		}

		w := VisualWidth(word)
		if lineWidth > 0 && lineWidth+1+w > width {
			flush()
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += w
	}
	flush()

	return strings.Join(lines, "\n")
}

package bubbletea

import (
	"strings"
	"unicode"

	rw "github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// wrapText word-wraps s to fit within width terminal cells, measuring with
// grapheme-aware widths so wide runes (CJK, emoji) don't overflow the line.
// Words wider than a whole line are broken at the last rune that fits.
// Used for plain-text block content where lipgloss styling would interfere
// with width measurement.
func wrapText(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0

	flush := func() {
		lines = append(lines, strings.TrimRight(line.String(), " "))
		line.Reset()
		lineWidth = 0
	}

	for _, word := range strings.FieldsFunc(s, unicode.IsSpace) {
		w := uniseg.StringWidth(word)
		if lineWidth > 0 && lineWidth+1+w > width {
			flush()
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		if w <= width {
			line.WriteString(word)
			lineWidth += w
			continue
		}
		// Word wider than a whole line: break it rune by rune.
		for _, r := range word {
			cw := rw.RuneWidth(r)
			if lineWidth+cw > width {
				flush()
			}
			line.WriteRune(r)
			lineWidth += cw
		}
	}
	if line.Len() > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}

// Package markdown renders markdown text to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling. Tables are supported
// because analytics answers lean on them heavily.
package markdown

import (
	"fmt"
	"strings"

	"github.com/fwojciec/scry"
)

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks and
// tables are rendered at full width without reflow.
func Render(source string, width int, theme scry.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := newRenderer(theme)
	return r.render([]byte(source), width)
}

// RenderCitations renders a numbered source list as a muted footer beneath
// the answer text.
func RenderCitations(citations []string, theme scry.Theme) string {
	if len(citations) == 0 {
		return ""
	}
	r := newRenderer(theme)
	var b strings.Builder
	b.WriteString(r.muted.Render("Sources:"))
	for i, c := range citations {
		b.WriteString("\n")
		b.WriteString(r.muted.Render(fmt.Sprintf("  [%d] %s", i+1, c)))
	}
	return b.String()
}

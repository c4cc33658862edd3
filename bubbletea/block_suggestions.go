package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/scry"
)

var _ MessageBlock = (*SuggestionsBlock)(nil)

// SuggestionsBlock renders follow-up suggestions as a muted footer.
type SuggestionsBlock struct {
	suggestions []scry.Suggestion
	styles      Styles
}

// NewSuggestionsBlock creates a SuggestionsBlock.
func NewSuggestionsBlock(styles Styles) *SuggestionsBlock {
	return &SuggestionsBlock{styles: styles}
}

// SetSuggestions replaces the displayed suggestion list.
func (b *SuggestionsBlock) SetSuggestions(suggestions []scry.Suggestion) {
	b.suggestions = suggestions
}

func (b *SuggestionsBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *SuggestionsBlock) View(width int) string {
	if len(b.suggestions) == 0 {
		return ""
	}
	labels := make([]string, 0, len(b.suggestions))
	for _, s := range b.suggestions {
		labels = append(labels, s.Label)
	}
	var lines []string
	for _, line := range wrapText("Try: "+strings.Join(labels, " · "), width) {
		lines = append(lines, b.styles.Muted.Render(line))
	}
	return strings.Join(lines, "\n")
}

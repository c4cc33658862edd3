package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/scry"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders an in-band protocol error.
type ErrorBlock struct {
	item   scry.ErrorItem
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(item scry.ErrorItem, styles Styles) *ErrorBlock {
	return &ErrorBlock{item: item, styles: styles}
}

func (b *ErrorBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ErrorBlock) View(width int) string {
	content := b.styles.Error.Render("Error: " + b.item.Message)
	if b.item.Code != "" {
		content += " " + b.styles.Muted.Render("["+b.item.Code+"]")
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

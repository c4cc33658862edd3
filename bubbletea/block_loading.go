package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var _ MessageBlock = (*LoadingBlock)(nil)

// LoadingBlock renders the transient progress indicator.
type LoadingBlock struct {
	stage   string
	message string
	styles  Styles
}

// NewLoadingBlock creates a LoadingBlock.
func NewLoadingBlock(styles Styles) *LoadingBlock {
	return &LoadingBlock{styles: styles}
}

// SetProgress replaces the displayed stage and message.
func (b *LoadingBlock) SetProgress(stage, message string) {
	b.stage = stage
	b.message = message
}

func (b *LoadingBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *LoadingBlock) View(width int) string {
	label := b.message
	if label == "" {
		label = b.stage
	}
	if label == "" {
		label = "working"
	}
	content := b.styles.Progress.Render("• " + label + "…")
	return lipgloss.NewStyle().Width(width).Render(content)
}

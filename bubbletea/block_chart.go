package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/scry"
)

var _ MessageBlock = (*ChartBlock)(nil)

// ChartBlock renders a chart artifact with a collapsible toggle. The raw
// chart config is visible when expanded; the terminal cannot plot it, so the
// block surfaces the configuration for inspection instead.
type ChartBlock struct {
	item      scry.ChartItem
	collapsed bool
	styles    Styles
}

// NewChartBlock creates a ChartBlock that starts collapsed.
func NewChartBlock(item scry.ChartItem, styles Styles) *ChartBlock {
	return &ChartBlock{item: item, collapsed: true, styles: styles}
}

func (b *ChartBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ChartBlock) View(width int) string {
	indicator := "▶"
	if !b.collapsed {
		indicator = "▼"
	}
	title := b.item.Config.Title
	if title == "" {
		title = "Chart"
	}
	header := b.styles.Artifact.Render(indicator + " " + title)
	if b.item.Config.Type != "" {
		header += " " + b.styles.Muted.Render("("+b.item.Config.Type+")")
	}
	content := header
	if !b.collapsed && len(b.item.Config.Raw) > 0 {
		content = header + "\n" + b.styles.Muted.Render(string(b.item.Config.Raw))
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

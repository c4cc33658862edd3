package bubbletea

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/scry"
)

var _ MessageBlock = (*CsvBlock)(nil)

// CsvBlock renders a downloadable CSV artifact.
type CsvBlock struct {
	item   scry.CsvItem
	styles Styles
}

// NewCsvBlock creates a CsvBlock.
func NewCsvBlock(item scry.CsvItem, styles Styles) *CsvBlock {
	return &CsvBlock{item: item, styles: styles}
}

func (b *CsvBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *CsvBlock) View(width int) string {
	title := b.item.Title
	if title == "" {
		title = b.item.Filename
	}
	header := b.styles.Artifact.Render("⇩ " + title)
	if b.item.RowCount > 0 {
		header += " " + b.styles.Muted.Render(fmt.Sprintf("(%d rows)", b.item.RowCount))
	}
	content := header
	if b.item.URL != "" {
		content += "\n" + b.styles.Muted.Render("  "+b.item.URL)
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

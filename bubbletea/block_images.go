package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/scry"
)

var _ MessageBlock = (*ImagesBlock)(nil)

// ImagesBlock renders generated images as a list of links; terminals can't
// display the images themselves.
type ImagesBlock struct {
	item   scry.ImagesItem
	styles Styles
}

// NewImagesBlock creates an ImagesBlock.
func NewImagesBlock(item scry.ImagesItem, styles Styles) *ImagesBlock {
	return &ImagesBlock{item: item, styles: styles}
}

func (b *ImagesBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ImagesBlock) View(width int) string {
	var lines []string
	lines = append(lines, b.styles.Artifact.Render("Images"))
	for _, img := range b.item.Images {
		line := "  " + img.URL
		if img.Alt != "" {
			line += " " + b.styles.Muted.Render("("+img.Alt+")")
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

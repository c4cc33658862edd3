package bubbletea

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/scry"
)

var _ MessageBlock = (*ResearchBlock)(nil)

// ResearchBlock renders research-mode telemetry with a collapsible toggle.
// The header always shows iteration progress; discoveries and dimension
// coverage are visible when expanded.
type ResearchBlock struct {
	state     scry.ResearchItem
	collapsed bool
	styles    Styles
}

// NewResearchBlock creates a ResearchBlock that starts collapsed.
func NewResearchBlock(styles Styles) *ResearchBlock {
	return &ResearchBlock{collapsed: true, styles: styles}
}

// SetState replaces the displayed telemetry.
func (b *ResearchBlock) SetState(state scry.ResearchItem) {
	b.state = state
}

func (b *ResearchBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ResearchBlock) View(width int) string {
	indicator := "▶"
	if !b.collapsed {
		indicator = "▼"
	}
	header := fmt.Sprintf("%s Research %d/%d", indicator, b.state.Iteration, b.state.TotalIterations)
	if b.state.Phase != "" {
		header += " · " + b.state.Phase
	}
	wrap := lipgloss.NewStyle().Width(width)
	out := b.styles.Progress.Render(wrap.Render(header))
	if b.collapsed {
		return out
	}

	var lines []string
	if len(b.state.DimensionsCovered) > 0 {
		lines = append(lines, "covered: "+strings.Join(b.state.DimensionsCovered, ", "))
	}
	if len(b.state.DimensionsPending) > 0 {
		lines = append(lines, "pending: "+strings.Join(b.state.DimensionsPending, ", "))
	}
	for _, d := range b.state.Discoveries {
		lines = append(lines, "· "+d)
	}
	if b.state.ToolsExecuted > 0 {
		lines = append(lines, fmt.Sprintf("%d tools executed", b.state.ToolsExecuted))
	}
	if len(lines) == 0 {
		return out
	}

	detailWidth := width - 2
	if detailWidth < 10 {
		detailWidth = 10
	}
	var detail []string
	for _, line := range lines {
		for _, wrapped := range wrapText(line, detailWidth) {
			detail = append(detail, "  "+wrapped)
		}
	}
	return out + "\n" + b.styles.Muted.Render(strings.Join(detail, "\n"))
}

package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/scry"
	"github.com/fwojciec/scry/markdown"
)

var _ MessageBlock = (*AnswerBlock)(nil)

// AnswerBlock renders the streamed answer text with markdown formatting.
// The text only ever grows during a stream, so finalized paragraphs
// (separated by double newline) are rendered once and cached; only the
// trailing unfinalized text is re-rendered on each snapshot.
type AnswerBlock struct {
	raw       string
	citations []string
	theme     scry.Theme

	// finalizedRaw is the stable prefix ending at the last double newline.
	// It's rendered once per width and cached in finalizedByWidth.
	finalizedRaw     string
	finalizedByWidth map[int]string
}

// NewAnswerBlock creates a block for streamed answer markdown.
func NewAnswerBlock(theme scry.Theme) *AnswerBlock {
	return &AnswerBlock{
		theme:            theme,
		finalizedByWidth: make(map[int]string),
	}
}

// SetText replaces the accumulated markdown with the latest snapshot text.
func (b *AnswerBlock) SetText(text string) {
	if text == b.raw {
		return
	}
	b.raw = text
	b.promoteFinalized()
}

// SetCitations replaces the citation list rendered beneath the answer.
func (b *AnswerBlock) SetCitations(citations []string) {
	b.citations = citations
}

func (b *AnswerBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AnswerBlock) View(width int) string {
	body := b.renderBody(width)
	if len(b.citations) == 0 {
		return body
	}
	footer := markdown.RenderCitations(b.citations, b.theme)
	if body == "" {
		return footer
	}
	return strings.TrimRight(body, "\n") + "\n\n" + footer
}

func (b *AnswerBlock) renderBody(width int) string {
	finalizedRendered := b.renderFinalized(width)
	trailing := b.trailingRaw()
	if hasUnclosedFence(trailing) {
		// Close fence only for rendering so partial streams display safely.
		trailing += "\n```"
	}
	// Empty trailing text (content ends exactly at "\n\n") should not be
	// passed to the renderer — some renderers return whitespace for empty
	// input, which would append spurious blank lines after finalized content.
	if trailing == "" {
		return finalizedRendered
	}
	trailingRendered := markdown.Render(trailing, width, b.theme)
	// Whitespace-only trailing input (e.g. " ") may render to whitespace;
	// treat it the same as empty to avoid spurious blank lines.
	if strings.TrimSpace(trailingRendered) == "" {
		return finalizedRendered
	}
	switch finalizedRendered {
	case "":
		return trailingRendered
	default:
		// Trim trailing/leading whitespace from independently-rendered
		// fragments to avoid a visible seam (extra blank lines) at the
		// finalization boundary. The paragraph break is reconstructed
		// with a single "\n\n" to match full-document render output.
		return strings.TrimRight(finalizedRendered, "\n") + "\n\n" + strings.TrimLeft(trailingRendered, "\n")
	}
}

// promoteFinalized scans for the last "\n\n" boundary that doesn't fall inside
// an unclosed fenced code block. Splitting inside a fence would produce a
// finalized fragment with an unclosed opening fence and a trailing fragment
// starting mid-code-block, causing transient rendering glitches.
func (b *AnswerBlock) promoteFinalized() {
	raw := b.raw
	// Walk backwards through all "\n\n" positions to find the last one
	// where the prefix has all fences closed.
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := raw[:idx]
		if !hasUnclosedFence(candidate) {
			if candidate != b.finalizedRaw {
				b.finalizedRaw = candidate
				// Width-sensitive cache must be invalidated when finalized text grows.
				clear(b.finalizedByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *AnswerBlock) renderFinalized(width int) string {
	if width <= 0 || b.finalizedRaw == "" {
		return ""
	}
	if cached, ok := b.finalizedByWidth[width]; ok {
		return cached
	}
	rendered := markdown.Render(b.finalizedRaw, width, b.theme)
	b.finalizedByWidth[width] = rendered
	return rendered
}

func (b *AnswerBlock) trailingRaw() string {
	if b.finalizedRaw == "" {
		return b.raw
	}
	prefix := b.finalizedRaw + "\n\n"
	return strings.TrimPrefix(b.raw, prefix)
}

// hasUnclosedFence detects whether s contains an unclosed fenced code block
// by checking for an odd number of "```" occurrences. This uses a simple
// substring count which does not distinguish triple backticks inside inline
// code spans (e.g., `foo ``` bar`). In practice streamed answer text rarely
// contains literal triple backticks in inline code, so this is acceptable.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}

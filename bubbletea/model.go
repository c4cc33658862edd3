package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/scry"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the scry TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	ask    AskFunc
	stop   StopFunc
	chat   *scry.Chat
	theme  scry.Theme
	styles Styles

	// blocks holds committed blocks from prior exchanges followed by the
	// current exchange's live region, which starts at liveStart and is
	// rebuilt from each item snapshot. liveBlocks correlates snapshot item
	// IDs with their blocks so streaming updates mutate in place instead of
	// recreating blocks (and losing render caches or collapse state).
	blocks     []MessageBlock
	liveStart  int
	liveBlocks map[string]MessageBlock
	blockFocus int // index of focused collapsible block (-1 = none)

	pendingQuestion string
	running         bool
	cancel          context.CancelFunc
	itemsCh         chan []scry.Item
	doneCh          chan ExchangeDoneMsg
	err             error
	rateLimit       *scry.RateLimitError
	ready           bool
}

// New creates a new TUI Model. The chat holds prior exchanges and receives
// committed answers; ask runs one exchange and stop aborts the live one.
func New(ask AskFunc, stop StopFunc, chat *scry.Chat, theme scry.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about protocols, chains, yields..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:      ti,
		ask:        ask,
		stop:       stop,
		chat:       chat,
		theme:      theme,
		styles:     NewStyles(theme),
		liveBlocks: make(map[string]MessageBlock),
		blockFocus: -1,
	}
}

// Running returns whether an exchange is currently streaming.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// SetRunning is a test helper that puts the model in a running state.
func SetRunning(m Model) (Model, tea.Cmd) {
	m.running = true
	return m, nil
}

// SetRunningWithStop is a test helper that puts the model in a running state
// with a stop function.
func SetRunningWithStop(m Model, stop func()) (Model, tea.Cmd) {
	m.running = true
	m.stop = stop
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamItemsMsg:
		m = m.applySnapshot(msg.Items)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		if m.itemsCh != nil {
			return m, listenForItems(m.itemsCh, m.doneCh)
		}
		return m, nil

	case ExchangeDoneMsg:
		m = m.finishExchange(msg)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		cmd := m.Input.Focus()
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	// Pass remaining messages to sub-components.
	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	// Output area.
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")

	// Status line.
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	// Input area.
	b.WriteString(m.Input.View())

	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := msg.Height - inputH - statusHeight - borderHeight

	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderChat()
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
		m.Viewport.SetContent(m.renderContent())
	}

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.stop != nil {
				m.stop()
			} else if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitQuestion(text)

	case tea.KeyTab:
		if !m.running && m.blockFocus >= 0 {
			block, cmd := m.blocks[m.blockFocus].Update(ToggleMsg{})
			m.blocks[m.blockFocus] = block
			m.Viewport.SetContent(m.renderContent())
			return m, cmd
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.running {
			m = m.cycleFocusPrev()
			m.Viewport.SetContent(m.renderContent())
		}
		return m, nil
	}

	// When idle, pass keys to both input (for typing) and viewport
	// (for scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submitQuestion(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.rateLimit = nil
	m.pendingQuestion = text

	m.blocks = append(m.blocks, NewQuestionBlock(text, m.styles))
	m.liveStart = len(m.blocks)
	m.liveBlocks = make(map[string]MessageBlock)
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	// Set up channels and context for the exchange.
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.itemsCh = make(chan []scry.Item, 256)
	m.doneCh = make(chan ExchangeDoneMsg, 1)
	m.running = true

	m.Input.Blur()

	return m, tea.Batch(
		startExchange(m.ask, ctx, text, m.itemsCh, m.doneCh),
		listenForItems(m.itemsCh, m.doneCh),
	)
}

// renderChat creates blocks from existing chat exchanges.
func (m Model) renderChat() Model {
	for _, ex := range m.chat.Exchanges {
		m.blocks = append(m.blocks, NewQuestionBlock(ex.Question, m.styles))
		m.blocks = append(m.blocks, m.answerBlocks(ex.Answer)...)
	}
	m.liveStart = len(m.blocks)
	m = m.updateBlockFocus()
	return m
}

// answerBlocks creates blocks for a committed answer's items.
func (m Model) answerBlocks(a scry.Answer) []MessageBlock {
	var blocks []MessageBlock
	for _, it := range a.Items {
		if b := m.newBlock(it); b != nil {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return ""
	}
	var b strings.Builder
	first := true
	for _, block := range m.blocks {
		view := block.View(m.Viewport.Width)
		if view == "" {
			continue
		}
		if !first {
			b.WriteString("\n\n")
		}
		b.WriteString(view)
		first = false
	}
	return b.String()
}

// applySnapshot rebuilds the live region from the latest item snapshot,
// reusing existing blocks by item ID so in-place updates keep render caches
// and collapse state. IDs absent from the snapshot drop out (cleared
// transients).
func (m Model) applySnapshot(items []scry.Item) Model {
	live := make([]MessageBlock, 0, len(items))
	next := make(map[string]MessageBlock, len(items))

	for _, it := range items {
		id := it.ID()
		block := m.liveBlocks[id]

		switch it := it.(type) {
		case scry.MarkdownItem:
			ab, ok := block.(*AnswerBlock)
			if !ok {
				ab = NewAnswerBlock(m.theme)
			}
			ab.SetText(it.Text)
			ab.SetCitations(it.Citations)
			block = ab
		case scry.LoadingItem:
			lb, ok := block.(*LoadingBlock)
			if !ok {
				lb = NewLoadingBlock(m.styles)
			}
			lb.SetProgress(it.Stage, it.Message)
			block = lb
		case scry.ResearchItem:
			rb, ok := block.(*ResearchBlock)
			if !ok {
				rb = NewResearchBlock(m.styles)
			}
			rb.SetState(it)
			block = rb
		case scry.SuggestionsItem:
			sb, ok := block.(*SuggestionsBlock)
			if !ok {
				sb = NewSuggestionsBlock(m.styles)
			}
			sb.SetSuggestions(it.Suggestions)
			block = sb
		default:
			// Immutable artifacts are created once and kept as-is.
			if block == nil {
				block = m.newBlock(it)
			}
		}
		if block == nil {
			continue
		}
		live = append(live, block)
		next[id] = block
	}

	m.blocks = append(m.blocks[:m.liveStart:m.liveStart], live...)
	m.liveBlocks = next
	m = m.updateBlockFocus()
	return m
}

// newBlock creates a block for an immutable item, or nil for items with no
// visual representation.
func (m Model) newBlock(it scry.Item) MessageBlock {
	switch it := it.(type) {
	case scry.MarkdownItem:
		b := NewAnswerBlock(m.theme)
		b.SetText(it.Text)
		b.SetCitations(it.Citations)
		return b
	case scry.ChartItem:
		return NewChartBlock(it, m.styles)
	case scry.CsvItem:
		return NewCsvBlock(it, m.styles)
	case scry.ImagesItem:
		return NewImagesBlock(it, m.styles)
	case scry.ErrorItem:
		return NewErrorBlock(it, m.styles)
	case scry.SuggestionsItem:
		b := NewSuggestionsBlock(m.styles)
		b.SetSuggestions(it.Suggestions)
		return b
	default:
		// Metadata and transient items have no committed rendering.
		return nil
	}
}

// finishExchange commits the exchange result: the live region is rebuilt
// from the committed answer's items, the exchange is appended to the chat,
// and a stop that produced nothing restores the question to the input.
func (m Model) finishExchange(msg ExchangeDoneMsg) Model {
	m.running = false
	m.cancel = nil
	m.itemsCh = nil
	m.doneCh = nil

	answer := msg.Answer
	err := msg.Err

	// Replace the live region with the committed view; the final streamed
	// snapshot may still contain transients on the stop and error paths.
	if answer != nil {
		m.blocks = append(m.blocks[:m.liveStart:m.liveStart], m.answerBlocks(*answer)...)
	} else {
		m.blocks = m.blocks[:m.liveStart:m.liveStart]
	}
	m.liveBlocks = make(map[string]MessageBlock)

	if answer != nil {
		now := time.Now()
		m.chat.Exchanges = append(m.chat.Exchanges, scry.Exchange{
			Question:  m.pendingQuestion,
			Answer:    *answer,
			Timestamp: now,
		})
		if answer.SessionID != "" {
			m.chat.ID = answer.SessionID
		}
		if answer.Title != "" {
			m.chat.Title = answer.Title
		}
		if m.chat.CreatedAt.IsZero() {
			m.chat.CreatedAt = now
		}
		m.chat.UpdatedAt = now
	}

	switch {
	case err == nil:
	case errors.Is(err, scry.ErrAborted):
		if answer == nil {
			// Stopped before any content: restore the draft.
			m.Input.SetValue(m.pendingQuestion)
		}
	case errors.Is(err, context.Canceled):
	default:
		var rl *scry.RateLimitError
		if errors.As(err, &rl) {
			m.rateLimit = rl
		} else {
			m.err = err
		}
	}

	m.liveStart = len(m.blocks)
	m.pendingQuestion = ""
	m = m.updateBlockFocus()
	return m
}

// updateBlockFocus scans backwards to find the last collapsible block.
// Only the focused block responds to Tab. ShiftTab cycles to the previous
// collapsible block.
func (m Model) updateBlockFocus() Model {
	m.blockFocus = -1
	for i := len(m.blocks) - 1; i >= 0; i-- {
		switch m.blocks[i].(type) {
		case *ResearchBlock, *ChartBlock:
			m.blockFocus = i
			return m
		}
	}
	return m
}

// cycleFocusPrev moves blockFocus to the previous collapsible block, wrapping around.
func (m Model) cycleFocusPrev() Model {
	if len(m.blocks) == 0 {
		return m
	}
	start := m.blockFocus - 1
	if start < 0 {
		start = len(m.blocks) - 1
	}
	for i := range len(m.blocks) {
		idx := (start - i + len(m.blocks)) % len(m.blocks)
		switch m.blocks[idx].(type) {
		case *ResearchBlock, *ChartBlock:
			m.blockFocus = idx
			return m
		}
	}
	m.blockFocus = -1
	return m
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.rateLimit != nil {
		msg := fmt.Sprintf("Usage limit reached (%d per %s)", m.rateLimit.Limit, m.rateLimit.Period)
		if m.rateLimit.ResetTime != "" {
			msg += ", resets " + m.rateLimit.ResetTime
		}
		return m.styles.Error.Render(msg)
	}
	if m.running {
		return m.styles.Muted.Render("Streaming... Ctrl+C to stop")
	}
	if m.chat.Title != "" {
		return m.styles.Muted.Render(m.chat.Title + " · Enter to send, Ctrl+C to quit")
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+C to quit")
}

// startExchange runs the exchange in a goroutine and signals completion.
func startExchange(ask AskFunc, ctx context.Context, question string, itemsCh chan<- []scry.Item, doneCh chan<- ExchangeDoneMsg) tea.Cmd {
	return func() tea.Msg {
		answer, err := ask(ctx, question, func(items []scry.Item) {
			select {
			case itemsCh <- items:
			case <-ctx.Done():
			}
		})
		close(itemsCh)
		doneCh <- ExchangeDoneMsg{Answer: answer, Err: err}
		return nil
	}
}

// listenForItems waits for the next snapshot from the channel. When the
// channel closes, it reads the result from doneCh and returns it.
func listenForItems(ch <-chan []scry.Item, doneCh <-chan ExchangeDoneMsg) tea.Cmd {
	return func() tea.Msg {
		items, ok := <-ch
		if !ok {
			return <-doneCh
		}
		return StreamItemsMsg{Items: items}
	}
}

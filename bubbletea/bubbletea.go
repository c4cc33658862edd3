// Package bubbletea provides a Bubble Tea TUI for the scry chat client.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/scry"
)

// AskFunc runs one exchange with the agent. The onItems callback receives
// the full item snapshot on every assembly flush. The function blocks until
// the exchange reaches a terminal phase and returns the committed answer,
// which may be a partial one when the exchange was stopped mid-stream.
type AskFunc func(ctx context.Context, question string, onItems func([]scry.Item)) (*scry.Answer, error)

// StopFunc aborts the live exchange. The model calls it on Ctrl+C while an
// exchange is running so the stop goes through the session lifecycle (server
// notification, partial-commit decision) rather than a bare context cancel.
type StopFunc func()

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown — when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// StreamItemsMsg carries an item snapshot for delivery to the Bubble Tea model.
type StreamItemsMsg struct {
	Items []scry.Item
}

// ExchangeDoneMsg signals that the exchange has reached a terminal phase.
type ExchangeDoneMsg struct {
	Answer *scry.Answer
	Err    error
}

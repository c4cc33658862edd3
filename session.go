package scry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// stopNotifyTimeout bounds the best-effort server stop notification, which
// runs on a detached context because the stream context is being cancelled.
const stopNotifyTimeout = 5 * time.Second

// Hooks are the consumer callbacks for one session. All are optional and all
// are invoked synchronously from the session goroutine (OnItems also from the
// assembler's throttle timer). A stopped session invokes no further hooks
// once the stop is observed.
type Hooks struct {
	// OnItems receives the assembler's full item snapshot on every flush.
	OnItems func([]Item)

	// OnEvent receives every decoded event before it is applied, in stream
	// order, unbatched.
	OnEvent func(Event)

	// OnPhase receives lifecycle transitions.
	OnPhase func(Phase)

	// OnSessionID receives the server-assigned session ID when it arrives.
	OnSessionID func(string)

	// OnTitle receives the generated session title when it arrives.
	OnTitle func(string)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithHooks installs consumer callbacks.
func WithHooks(h Hooks) SessionOption {
	return func(s *Session) { s.hooks = h }
}

// WithLogger sets the session logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithSeed pre-fills the accumulated content for the reconnect path, so
// visible content never regresses below what the server reported.
func WithSeed(content string) SessionOption {
	return func(s *Session) { s.seed = content }
}

// Session drives one logical exchange: it opens the transport call, feeds
// decoded events to the assembler, and resolves to a terminal phase. A
// Session runs once; create a new one per exchange.
type Session struct {
	agent  Agent
	req    Request
	hooks  Hooks
	logger zerolog.Logger
	seed   string

	mu        sync.Mutex
	phase     Phase
	cancel    context.CancelFunc
	stopped   bool
	sessionID string
	messageID string
	title     string
	asm       *Assembler
}

// NewSession creates a session for one request. Run starts it.
func NewSession(agent Agent, req Request, opts ...SessionOption) *Session {
	s := &Session{
		agent:  agent,
		req:    req,
		logger: zerolog.Nop(),
		phase:  PhaseIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessionID = req.SessionID
	s.asm = NewAssembler("", s.seed)
	s.asm.SetEmit(func(items []Item) {
		if s.wasStopped() {
			return
		}
		if s.hooks.OnItems != nil {
			s.hooks.OnItems(items)
		}
	})
	return s
}

// Run performs the exchange and blocks until a terminal phase. It returns:
//   - a completed Answer and nil error on normal stream end;
//   - a partial Answer (Stopped, Partial set) and ErrAborted when stopped
//     after content had accumulated;
//   - nil and ErrAborted when stopped before any content — the caller
//     restores the draft input instead of committing;
//   - nil and *RateLimitError on a quota failure;
//   - a partial-or-nil Answer and the transport error otherwise.
func (s *Session) Run(ctx context.Context) (*Answer, error) {
	if err := s.req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return nil, fmt.Errorf("session already started (phase %s)", s.phase)
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()
	s.setPhase(PhaseSubmitting)

	stream, err := s.agent.Ask(ctx, s.req)
	if err != nil {
		if s.wasStopped() {
			return s.finishAborted()
		}
		s.setPhase(PhaseErrored)
		return nil, err
	}
	defer stream.Close()
	s.setPhase(PhaseStreaming)

	for {
		ev, err := stream.Next()
		if s.wasStopped() {
			return s.finishAborted()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return s.finishCompleted()
			}
			if errors.Is(err, context.Canceled) {
				return s.finishAborted()
			}
			return s.finishErrored(err)
		}
		s.handleEvent(ev)
	}
}

// Stop aborts the session: the phase flips immediately so no further hooks
// fire, the server is notified best-effort on a detached context, and the
// in-flight transport call is cancelled. Run's return value resolves the
// partial-commit-vs-restore decision.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.phase.Terminal() || s.phase == PhaseIdle {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	s.stopped = true
	s.phase = PhaseAborted
	cancel := s.cancel
	sessionID := s.sessionID
	hook := s.hooks.OnPhase
	s.mu.Unlock()

	if hook != nil {
		hook(PhaseAborted)
	}
	if sessionID != "" {
		go func() {
			ctx, done := context.WithTimeout(context.Background(), stopNotifyTimeout)
			defer done()
			if err := s.agent.Stop(ctx, sessionID); err != nil {
				s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("stop notification failed")
			}
		}()
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SessionID returns the server-assigned session ID, or the requested one if
// none has arrived yet.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Title returns the generated session title, if one has arrived.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Snapshot returns the assembler's current item list.
func (s *Session) Snapshot() []Item {
	return s.asm.Snapshot()
}

func (s *Session) handleEvent(ev Event) {
	if s.hooks.OnEvent != nil {
		s.hooks.OnEvent(ev)
	}
	switch e := ev.(type) {
	case SessionEvent:
		s.mu.Lock()
		s.sessionID = e.SessionID
		hook := s.hooks.OnSessionID
		s.mu.Unlock()
		if hook != nil {
			hook(e.SessionID)
		}
	case MessageIDEvent:
		s.mu.Lock()
		s.messageID = e.MessageID
		s.mu.Unlock()
	case TitleEvent:
		s.mu.Lock()
		s.title = e.Content
		hook := s.hooks.OnTitle
		s.mu.Unlock()
		if hook != nil {
			hook(e.Content)
		}
	case UnknownEvent:
		s.logger.Debug().Str("type", e.Type).Msg("unrecognized event type")
	}
	s.asm.Feed(ev)
}

func (s *Session) finishCompleted() (*Answer, error) {
	s.asm.ClearTransients()
	s.asm.Close()
	s.setPhase(PhaseCompleted)
	return s.answer(false), nil
}

func (s *Session) finishErrored(err error) (*Answer, error) {
	s.asm.Close()
	s.setPhase(PhaseErrored)
	if s.asm.Content() == "" && len(s.asm.Committable()) == 0 {
		return nil, err
	}
	a := s.answer(false)
	a.Partial = true
	return a, err
}

func (s *Session) finishAborted() (*Answer, error) {
	s.asm.Close()
	s.setPhase(PhaseAborted)
	if s.asm.Content() == "" && len(s.asm.Committable()) == 0 {
		return nil, ErrAborted
	}
	a := s.answer(true)
	return a, ErrAborted
}

func (s *Session) answer(stopped bool) *Answer {
	suggestions, charts, chartData, citations, csvExports, metadata := s.asm.Accumulated()
	s.mu.Lock()
	sessionID, messageID, title := s.sessionID, s.messageID, s.title
	s.mu.Unlock()
	return &Answer{
		SessionID:         sessionID,
		MessageID:         messageID,
		Title:             title,
		Content:           s.asm.Content(),
		Items:             s.asm.Committable(),
		InlineSuggestions: s.asm.InlineSuggestions(),
		Suggestions:       suggestions,
		Charts:            charts,
		ChartData:         chartData,
		Citations:         citations,
		CsvExports:        csvExports,
		Metadata:          metadata,
		Stopped:           stopped,
		Partial:           stopped,
		Timestamp:         time.Now(),
	}
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	if s.phase == p {
		s.mu.Unlock()
		return
	}
	if !s.phase.CanTransition(p) {
		from := s.phase
		s.mu.Unlock()
		s.logger.Error().Stringer("from", from).Stringer("to", p).Msg("illegal phase transition")
		return
	}
	s.phase = p
	hook := s.hooks.OnPhase
	s.mu.Unlock()
	if hook != nil {
		hook(p)
	}
}

func (s *Session) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

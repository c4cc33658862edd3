package scry

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerLogger sets the controller logger, also inherited by the
// sessions it creates. Defaults to a no-op logger.
func WithControllerLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithControllerHooks installs consumer callbacks passed through to every
// session the controller creates.
func WithControllerHooks(h Hooks) ControllerOption {
	return func(c *Controller) { c.hooks = h }
}

// WithSessionIDs overrides the optimistic session-ID generator. Tests use
// this for deterministic IDs.
func WithSessionIDs(fn func() string) ControllerOption {
	return func(c *Controller) { c.newID = fn }
}

// Controller owns at most one live Session and the externally visible
// session identity across exchanges. It allocates an optimistic session ID
// before the server confirms one, reconciles it when the session event
// arrives, decides what happens to partial content on stop/error/success,
// and keeps the usage meter for metered research requests.
type Controller struct {
	agent  Agent
	logger zerolog.Logger
	hooks  Hooks
	usage  *UsageMeter
	newID  func() string

	mu        sync.Mutex
	cur       *Session
	sessionID string
	title     string
	draft     *Draft
	lastReq   *Request
	rateLimit *RateLimitError
}

// NewController creates a controller for one chat surface.
func NewController(agent Agent, opts ...ControllerOption) *Controller {
	c := &Controller{
		agent:  agent,
		logger: zerolog.Nop(),
		usage:  &UsageMeter{},
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit starts a new exchange with the given question. A live session is
// implicitly stopped first; submitting while streaming is treated as a stop
// plus a new start. Submit blocks until the exchange reaches a terminal
// phase and returns what Session.Run returns.
func (c *Controller) Submit(ctx context.Context, req Request) (*Answer, error) {
	c.mu.Lock()
	if c.cur != nil && !c.cur.Phase().Terminal() {
		if err := c.cur.Stop(); err != nil && !errors.Is(err, ErrNoActiveSession) {
			c.logger.Warn().Err(err).Msg("implicit stop of live session failed")
		}
	}
	if req.SessionID == "" && c.sessionID != "" {
		// Continue the established chat session.
		req.SessionID = c.sessionID
	}
	if c.sessionID == "" {
		// Optimistic identity so the consumer can react before the
		// server confirms; reconciled by the session event.
		c.sessionID = c.newID()
	}
	c.mu.Unlock()

	return c.run(ctx, req, "")
}

// Retry replays the last failed request verbatim. Only a non-abort,
// non-quota failure arms the retry path; otherwise ErrNothingToRetry.
func (c *Controller) Retry(ctx context.Context) (*Answer, error) {
	c.mu.Lock()
	if c.lastReq == nil {
		c.mu.Unlock()
		return nil, ErrNothingToRetry
	}
	req := *c.lastReq
	c.mu.Unlock()
	return c.run(ctx, req, "")
}

// Reconnect reattaches to a session that may still be streaming server-side.
// If the server reports the exchange already completed, its result is
// returned directly; otherwise decoding resumes seeded with the partial
// content the server reported, so visible content never regresses.
func (c *Controller) Reconnect(ctx context.Context, sessionID string) (*Answer, error) {
	state, err := c.agent.Restore(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()

	if state.Status == StatusCompleted {
		if state.Result != nil {
			return state.Result, nil
		}
		return &Answer{SessionID: sessionID, Content: state.Content}, nil
	}

	req := Request{SessionID: sessionID, Resume: true}
	return c.run(ctx, req, state.Content)
}

// Stop aborts the live session. Returns ErrNoActiveSession when nothing is
// running.
func (c *Controller) Stop() error {
	c.mu.Lock()
	cur := c.cur
	c.mu.Unlock()
	if cur == nil {
		return ErrNoActiveSession
	}
	return cur.Stop()
}

// Reset abandons the current chat session: any live session is stopped and
// all retained state (identity, draft, retry, quota) is cleared, ready for a
// fresh conversation.
func (c *Controller) Reset() {
	c.mu.Lock()
	cur := c.cur
	c.cur = nil
	c.sessionID = ""
	c.title = ""
	c.draft = nil
	c.lastReq = nil
	c.rateLimit = nil
	c.mu.Unlock()
	if cur != nil && !cur.Phase().Terminal() {
		if err := cur.Stop(); err != nil && !errors.Is(err, ErrNoActiveSession) {
			c.logger.Warn().Err(err).Msg("stop on reset failed")
		}
	}
}

// SessionID returns the current session identity (optimistic until the
// server confirms).
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Title returns the server-generated title for the current chat session.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// Phase returns the live session's phase, or PhaseIdle when none exists.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return PhaseIdle
	}
	return c.cur.Phase()
}

// Draft returns the input to restore after a stop that produced no content,
// or nil. Reading does not clear it; Submit and Reset do.
func (c *Controller) Draft() *Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// RateLimit returns the quota failure from the last exchange, or nil.
func (c *Controller) RateLimit() *RateLimitError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateLimit
}

// Usage returns the controller's usage meter for metered research requests.
func (c *Controller) Usage() *UsageMeter {
	return c.usage
}

func (c *Controller) run(ctx context.Context, req Request, seed string) (*Answer, error) {
	hooks := c.hooks
	inner := hooks.OnSessionID
	hooks.OnSessionID = func(id string) {
		c.mu.Lock()
		c.sessionID = id
		c.mu.Unlock()
		if inner != nil {
			inner(id)
		}
	}
	innerTitle := hooks.OnTitle
	hooks.OnTitle = func(title string) {
		c.mu.Lock()
		c.title = title
		c.mu.Unlock()
		if innerTitle != nil {
			innerTitle(title)
		}
	}

	opts := []SessionOption{WithHooks(hooks), WithLogger(c.logger)}
	if seed != "" {
		opts = append(opts, WithSeed(seed))
	}
	sess := NewSession(c.agent, req, opts...)

	c.mu.Lock()
	c.cur = sess
	c.draft = nil
	c.rateLimit = nil
	c.mu.Unlock()

	answer, err := sess.Run(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err == nil:
		c.lastReq = nil
		if answer.SessionID != "" {
			c.sessionID = answer.SessionID
		}
		if req.ForceIntent == IntentResearch {
			// Optimistic local accounting, reconciled by the next
			// authoritative usage fetch.
			c.usage.Decrement()
		}
	case errors.Is(err, ErrAborted):
		c.lastReq = nil
		if answer == nil && !req.Resume {
			c.draft = &Draft{
				Question: req.Question,
				Entities: req.Entities,
				Images:   req.Images,
			}
		}
	default:
		var rl *RateLimitError
		if errors.As(err, &rl) {
			c.rateLimit = rl
			c.lastReq = nil
		} else {
			c.lastReq = &req
		}
	}
	return answer, err
}

package scry

import "context"

// Streaming status values reported by Agent.Restore.
const (
	StatusStreaming = "streaming"
	StatusCompleted = "completed"
)

// RestoreState describes a session's server-side streaming state, fetched
// independently of the event stream to decide whether to resume decoding or
// treat the exchange as already finished. Content is the partial answer the
// server has produced so far; Result is the finished answer when Status is
// completed.
type RestoreState struct {
	Status  string
	Content string
	Result  *Answer
}

// Agent is the transport collaborator: it performs the authenticated
// request and hands back a byte-stream decoded into events.
type Agent interface {
	// Ask issues the streaming request. A quota failure surfaces as a
	// *RateLimitError before any stream is returned.
	Ask(ctx context.Context, req Request) (EventStream, error)

	// Stop asks the server to stop producing for the session. Best-effort:
	// callers do not block an abort on its result.
	Stop(ctx context.Context, sessionID string) error

	// Restore looks up a session's streaming state for the reconnect path.
	Restore(ctx context.Context, sessionID string) (RestoreState, error)
}

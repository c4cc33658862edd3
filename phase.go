package scry

import "fmt"

// Phase is the lifecycle state of a Session. Transitions are validated
// against an explicit table: illegal transitions are errors, not silent
// no-ops.
type Phase int

const (
	PhaseIdle       Phase = iota // Before Run is called.
	PhaseSubmitting              // Request issued, no response bytes yet.
	PhaseStreaming               // Receiving events.
	PhaseCompleted               // Stream drained normally.
	PhaseErrored                 // Transport or protocol failure.
	PhaseAborted                 // User-initiated stop.
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseStreaming:
		return "streaming"
	case PhaseCompleted:
		return "completed"
	case PhaseErrored:
		return "errored"
	case PhaseAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Terminal reports whether the phase is final for a session.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseErrored, PhaseAborted:
		return true
	default:
		return false
	}
}

// transitions is the exhaustive table of legal phase transitions.
// PhaseIdle → PhaseStreaming covers the reconnect path, which skips
// submitting because the server-side stream already exists.
var transitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseSubmitting, PhaseStreaming},
	PhaseSubmitting: {PhaseStreaming, PhaseErrored, PhaseAborted},
	PhaseStreaming:  {PhaseCompleted, PhaseErrored, PhaseAborted},
	PhaseCompleted:  {},
	PhaseErrored:    {},
	PhaseAborted:    {},
}

// CanTransition reports whether moving from p to next is legal.
func (p Phase) CanTransition(next Phase) bool {
	for _, t := range transitions[p] {
		if t == next {
			return true
		}
	}
	return false
}

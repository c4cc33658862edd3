package mock

import (
	"io"
	"sync"

	"github.com/fwojciec/scry"
)

// Stream is a test double for scry.EventStream.
// NextFn panics when nil to catch missing setup; CloseFn is nil-safe because
// test code commonly calls defer stream.Close().
type Stream struct {
	NextFn  func() (scry.Event, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (scry.Event, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Events returns a Stream that plays the given events in order and then
// returns io.EOF. Safe for cross-goroutine use.
func Events(events ...scry.Event) *Stream {
	var mu sync.Mutex
	i := 0
	return &Stream{
		NextFn: func() (scry.Event, error) {
			mu.Lock()
			defer mu.Unlock()
			if i >= len(events) {
				return nil, io.EOF
			}
			ev := events[i]
			i++
			return ev, nil
		},
	}
}

package wire

import (
	"context"
	"errors"
	"io"

	"github.com/fwojciec/scry"
)

// stream implements [scry.EventStream] over an HTTP response body, pulling
// chunks through a Decoder. Cancellation is cooperative: the context is
// checked before each underlying read, so a cancelled stream stops emitting
// even if buffered bytes remain un-decoded.
type stream struct {
	ctx     context.Context
	body    io.ReadCloser
	dec     *Decoder
	pending []scry.Event
	chunk   []byte
	err     error
	closed  bool
}

// Interface compliance check.
var _ scry.EventStream = (*stream)(nil)

// NewStream wraps a response body in a pull-based event stream. The decoder
// carries the configured logger for dropped lines.
func NewStream(ctx context.Context, body io.ReadCloser, opts ...DecoderOption) scry.EventStream {
	return &stream{
		ctx:   ctx,
		body:  body,
		dec:   NewDecoder(opts...),
		chunk: make([]byte, 8192),
	}
}

// Next returns the next decoded event. It returns io.EOF when the server
// closes the stream normally and the context's error once cancellation is
// observed.
func (s *stream) Next() (scry.Event, error) {
	if s.closed {
		return nil, scry.ErrStreamClosed
	}
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}
		if s.err != nil {
			return nil, s.err
		}
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return nil, err
		}

		n, err := s.body.Read(s.chunk)
		if n > 0 {
			s.pending = s.dec.Feed(s.chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// An unterminated trailing line is discarded.
				s.dec.Flush()
				s.err = io.EOF
			} else {
				s.err = err
			}
		}
	}
}

// Close closes the underlying response body. Further Next calls return
// ErrStreamClosed.
func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

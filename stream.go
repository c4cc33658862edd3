package scry

// EventStream uses a pull-based iterator pattern over decoded protocol
// events. Next returns io.EOF when the server closes the stream normally;
// any other error is a transport failure. Cancellation flows through the
// context passed to Agent.Ask, checked before each underlying read.
type EventStream interface {
	Next() (Event, error)
	Close() error
}

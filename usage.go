package scry

import "sync"

// UsageMeter tracks the remaining allowance of metered (research) requests.
// The server is authoritative; the meter only mirrors the last reported value
// and decrements it optimistically when a metered exchange completes. When no
// value has been reported yet the meter is unknown and Decrement is a no-op.
type UsageMeter struct {
	mu        sync.Mutex
	known     bool
	remaining int
}

// Set records the server-reported remaining allowance.
func (m *UsageMeter) Set(remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.known = true
	m.remaining = remaining
}

// Remaining returns the tracked allowance and whether any value is known.
func (m *UsageMeter) Remaining() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining, m.known
}

// Decrement reduces the tracked allowance by one, clamped at zero. Unknown
// meters stay unknown.
func (m *UsageMeter) Decrement() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.known || m.remaining == 0 {
		return
	}
	m.remaining--
}

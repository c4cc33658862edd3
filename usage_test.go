package scry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fwojciec/scry"
)

func TestUsageMeterUnknownByDefault(t *testing.T) {
	t.Parallel()

	m := &scry.UsageMeter{}
	_, known := m.Remaining()
	assert.False(t, known)

	// Decrementing an unknown meter is a no-op.
	m.Decrement()
	_, known = m.Remaining()
	assert.False(t, known)
}

func TestUsageMeterDecrementClampsAtZero(t *testing.T) {
	t.Parallel()

	m := &scry.UsageMeter{}
	m.Set(2)

	m.Decrement()
	m.Decrement()
	m.Decrement()

	remaining, known := m.Remaining()
	assert.True(t, known)
	assert.Equal(t, 0, remaining)
}

func TestUsageMeterSetOverridesLocalAccounting(t *testing.T) {
	t.Parallel()

	m := &scry.UsageMeter{}
	m.Set(5)
	m.Decrement()

	// The next authoritative fetch wins.
	m.Set(7)
	remaining, _ := m.Remaining()
	assert.Equal(t, 7, remaining)
}

// Package mock provides test doubles for scry interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/scry"
)

// Interface compliance checks.
var (
	_ scry.Agent       = (*Agent)(nil)
	_ scry.EventStream = (*Stream)(nil)
)

// Agent is a test double for scry.Agent.
// Set AskFn before calling Ask. StopFn and RestoreFn are nil-safe (no-op and
// zero value) because most session tests never exercise them.
type Agent struct {
	AskFn     func(ctx context.Context, req scry.Request) (scry.EventStream, error)
	StopFn    func(ctx context.Context, sessionID string) error
	RestoreFn func(ctx context.Context, sessionID string) (scry.RestoreState, error)
}

// Ask delegates to AskFn.
func (a *Agent) Ask(ctx context.Context, req scry.Request) (scry.EventStream, error) {
	return a.AskFn(ctx, req)
}

// Stop delegates to StopFn. Returns nil when StopFn is not set.
func (a *Agent) Stop(ctx context.Context, sessionID string) error {
	if a.StopFn == nil {
		return nil
	}
	return a.StopFn(ctx, sessionID)
}

// Restore delegates to RestoreFn. Returns a zero state when RestoreFn is not
// set.
func (a *Agent) Restore(ctx context.Context, sessionID string) (scry.RestoreState, error) {
	if a.RestoreFn == nil {
		return scry.RestoreState{}, nil
	}
	return a.RestoreFn(ctx, sessionID)
}

package domain

import (
	"context"
	"time"
)

// StateChangeEvent records one observed transition of a block.
type StateChangeEvent struct {
	BlockID     string        `json:"block_id"`
	BlockTypeID string        `json:"block_type_id"`
	Old         RunnableState `json:"old_state"`
	New         RunnableState `json:"new_state"`
	At          time.Time     `json:"at"`
}

// StateChangeListener receives every transition of the blocks it is registered on.
//
// Listeners are called synchronously on the tick that caused the transition.
// They must tolerate events for states they do not care about.
type StateChangeListener interface {
	OnStateChanged(ctx context.Context, event StateChangeEvent) error
}

// StateChangeListenerFunc adapts a plain function to StateChangeListener.
type StateChangeListenerFunc func(ctx context.Context, event StateChangeEvent) error

// OnStateChanged calls f(ctx, event).
func (f StateChangeListenerFunc) OnStateChanged(ctx context.Context, event StateChangeEvent) error {
	return f(ctx, event)
}

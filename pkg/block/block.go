package block

import (
	"context"

	"github.com/aretw0/forge/pkg/domain"
)

// Tickable is the capability invoked by the host scheduler once per tick.
type Tickable interface {
	Run(ctx context.Context) error
}

// Block is the contract hosts use to drive and inspect a block.
type Block interface {
	Tickable

	TypeID() string
	InternalID() string
	DefaultInputText() string
	State() domain.RunnableState
	ResultText() string

	// PrintableState renders identity, state and block diagnostics as text.
	PrintableState() string

	// AddStateChangeListener registers an external listener.
	// Registering the same listener twice is a no-op.
	AddStateChangeListener(l domain.StateChangeListener)

	// ResolveLines hands the block its connections and the flow used to go further.
	ResolveLines(lines []domain.Line, flow Flow) error

	// Fail forces the block into domain.StateFailed and follows failure lines.
	Fail(ctx context.Context, cause error) error
}

// Body is the type-specific part of a block.
type Body interface {
	// OnTransition is called for every transition of the block, before external listeners.
	OnTransition(ctx context.Context, t *Tracker, event domain.StateChangeEvent) error

	// Step performs the work of one tick. It is only called while the block is running.
	Step(ctx context.Context, t *Tracker) error

	// Diagnostics returns extra "Label: value" lines for PrintableState.
	Diagnostics() []Field
}

// Flow is the host hook used when a block goes further along its lines.
type Flow interface {
	GoFurther(ctx context.Context, blockID string, kind domain.LineKind, lines []domain.Line) error
}

// Field is one diagnostic line of a printable state.
type Field struct {
	Label string
	Value any
}

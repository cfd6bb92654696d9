package domain

import "fmt"

// RunnableState is the lifecycle state of a block or an instance.
type RunnableState string

const (
	StateCreated RunnableState = "created" // Built, never ticked
	StateReady   RunnableState = "ready"   // Scheduled, waiting for the first running tick
	StateRunning RunnableState = "running" // Executing block-specific work on every tick
	StateDone    RunnableState = "done"    // Normal terminal state
	StateFailed  RunnableState = "failed"  // Abnormal terminal state
)

// Rank orders states along the transition graph.
// Unknown states rank below StateCreated.
func (s RunnableState) Rank() int {
	switch s {
	case StateCreated:
		return 0
	case StateReady:
		return 1
	case StateRunning:
		return 2
	case StateDone, StateFailed:
		return 3
	default:
		return -1
	}
}

// IsTerminal reports whether no further transition is possible.
func (s RunnableState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Valid reports whether s is one of the known states.
func (s RunnableState) Valid() bool {
	return s.Rank() >= 0
}

func (s RunnableState) String() string {
	return string(s)
}

// CanTransition reports whether moving from one state to another is allowed.
//
// Transitions are strictly forward: created -> ready -> running -> done.
// StateFailed is reachable from every non-terminal state. StateDone is only
// reachable from StateRunning.
func CanTransition(from, to RunnableState) bool {
	if !from.Valid() || !to.Valid() || from.IsTerminal() {
		return false
	}
	switch to {
	case StateFailed:
		return true
	case StateDone:
		return from == StateRunning
	default:
		return to.Rank() == from.Rank()+1
	}
}

// ValidateTransition returns ErrInvalidTransition when CanTransition is false.
func ValidateTransition(from, to RunnableState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

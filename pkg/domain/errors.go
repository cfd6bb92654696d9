package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrArgumentShape is returned when construction arguments have the wrong arity or type.
	ErrArgumentShape = errors.New("invalid block arguments")

	// ErrUnsupportedType is returned when a block type id is not known to a registry.
	ErrUnsupportedType = errors.New("unsupported block type")

	// ErrIncompatibleEngine is returned when a registry was built for an incompatible host version.
	ErrIncompatibleEngine = errors.New("incompatible engine version")

	// ErrInvalidTransition is returned when a state change would move backwards or leave a terminal state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrReentrantTransition is returned when a transition is requested while listeners are being notified.
	ErrReentrantTransition = errors.New("re-entrant state transition")

	// ErrListenerFailed wraps failures raised by state change listeners.
	ErrListenerFailed = errors.New("state change listener failed")

	// ErrResultAlreadySet is returned when the result text is written twice in one run.
	ErrResultAlreadySet = errors.New("result text already set")

	// ErrTickBudgetExceeded is the cause recorded when the host forces a block to fail after too many ticks.
	ErrTickBudgetExceeded = errors.New("tick budget exceeded")

	// ErrUnknownBlock is returned when a line or lookup references a block id that does not exist.
	ErrUnknownBlock = errors.New("unknown block")

	// ErrInstanceNotFound is returned when an instance id cannot be found.
	ErrInstanceNotFound = errors.New("instance not found")
)

// ListenerError is a single listener failure, identified by its registration index.
type ListenerError struct {
	Index int
	Event StateChangeEvent
	Err   error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %d on %s -> %s: %v", e.Index, e.Event.Old, e.Event.New, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// Is makes every ListenerError match ErrListenerFailed.
func (e *ListenerError) Is(target error) bool { return target == ErrListenerFailed }

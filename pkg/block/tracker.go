package block

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/forge/pkg/domain"
	"go.uber.org/multierr"
)

// Tracker holds the state shared by every block and performs transitions.
// Bodies receive it on every call and use it to change state, publish the
// result and go further.
type Tracker struct {
	typeID           string
	internalID       string
	defaultInputText string

	mu          sync.RWMutex
	state       domain.RunnableState
	resultText  string
	resultSet   bool
	listeners   []domain.StateChangeListener
	lines       []domain.Line
	flow        Flow
	outcome     domain.LineKind
	failure     error
	dispatching bool
	diagnostics []Field

	self   func(ctx context.Context, t *Tracker, event domain.StateChangeEvent) error
	logger *slog.Logger
	now    func() time.Time
}

func (t *Tracker) TypeID() string           { return t.typeID }
func (t *Tracker) InternalID() string       { return t.internalID }
func (t *Tracker) DefaultInputText() string { return t.defaultInputText }

// Logger returns the block-scoped logger.
func (t *Tracker) Logger() *slog.Logger { return t.logger }

// State returns the current state.
func (t *Tracker) State() domain.RunnableState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// ResultText returns the result published by the block, if any.
func (t *Tracker) ResultText() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.resultText
}

// SetResultText publishes the block output. It can be written once per run.
func (t *Tracker) SetResultText(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resultSet {
		return fmt.Errorf("block %s: %w", t.internalID, domain.ErrResultAlreadySet)
	}
	t.resultText = text
	t.resultSet = true
	return nil
}

// Outcome returns the kind of lines the block went further on, or "" if it has not.
func (t *Tracker) Outcome() domain.LineKind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.outcome
}

// Failure returns the cause recorded when the block was forced to fail.
func (t *Tracker) Failure() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.failure
}

// Lines returns the outgoing lines resolved for this block.
func (t *Tracker) Lines() []domain.Line {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.lines)
}

// SetState moves the block to next and notifies.
//
// The block's own transition callback runs first, then every external
// listener in registration order. The transition stands even when a
// callback fails. Listener failures are isolated and aggregated.
func (t *Tracker) SetState(ctx context.Context, next domain.RunnableState) error {
	t.mu.Lock()
	if t.dispatching {
		t.mu.Unlock()
		return fmt.Errorf("block %s: %w: %s", t.internalID, domain.ErrReentrantTransition, next)
	}
	old := t.state
	if err := domain.ValidateTransition(old, next); err != nil {
		t.mu.Unlock()
		return fmt.Errorf("block %s: %w", t.internalID, err)
	}
	t.state = next
	t.dispatching = true
	listeners := slices.Clone(t.listeners)
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.dispatching = false
		t.mu.Unlock()
	}()

	event := domain.StateChangeEvent{
		BlockID:     t.internalID,
		BlockTypeID: t.typeID,
		Old:         old,
		New:         next,
		At:          t.now(),
	}
	t.logger.Debug("state changed", "old", old, "new", next)

	var errs error
	if t.self != nil {
		if err := t.self(ctx, t, event); err != nil {
			errs = fmt.Errorf("block %s: on %s: %w", t.internalID, next, err)
		}
	}
	for i, l := range listeners {
		errs = multierr.Append(errs, notify(ctx, i, l, event))
	}
	return errs
}

// GoFurtherNormal asks the flow to continue along normal lines.
// The block must be done. Only the first call to go further has an effect.
func (t *Tracker) GoFurtherNormal(ctx context.Context) error {
	return t.goFurther(ctx, domain.LineNormal, domain.StateDone)
}

// GoFurtherFailure asks the flow to continue along failure lines.
// The block must have failed. Only the first call to go further has an effect.
func (t *Tracker) GoFurtherFailure(ctx context.Context) error {
	return t.goFurther(ctx, domain.LineFailure, domain.StateFailed)
}

func (t *Tracker) goFurther(ctx context.Context, kind domain.LineKind, required domain.RunnableState) error {
	t.mu.Lock()
	if t.state != required {
		state := t.state
		t.mu.Unlock()
		return fmt.Errorf("block %s: %w: go further %s from %s", t.internalID, domain.ErrInvalidTransition, kind, state)
	}
	if t.outcome != "" {
		t.mu.Unlock()
		return nil
	}
	t.outcome = kind
	flow := t.flow
	lines := slices.Clone(t.lines)
	t.mu.Unlock()

	if flow == nil {
		t.logger.Debug("no flow attached, nothing to continue", "kind", kind)
		return nil
	}
	return flow.GoFurther(ctx, t.internalID, kind, lines)
}

func (t *Tracker) addListener(l domain.StateChangeListener) {
	if l == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.listeners {
		if sameListener(existing, l) {
			return
		}
	}
	t.listeners = append(t.listeners, l)
}

func (t *Tracker) resolve(lines []domain.Line, flow Flow) {
	own := make([]domain.Line, 0, len(lines))
	for _, l := range lines {
		if l.From == t.internalID {
			own = append(own, l)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = own
	t.flow = flow
}

func (t *Tracker) recordFailure(cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failure == nil {
		t.failure = cause
	}
}

func (t *Tracker) setDiagnostics(fields []Field) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.diagnostics = fields
}

func (t *Tracker) snapshot() (domain.RunnableState, string, bool, error, []Field) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state, t.resultText, t.resultSet, t.failure, slices.Clone(t.diagnostics)
}

func notify(ctx context.Context, index int, l domain.StateChangeListener, event domain.StateChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.ListenerError{Index: index, Event: event, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if lerr := l.OnStateChanged(ctx, event); lerr != nil {
		return &domain.ListenerError{Index: index, Event: event, Err: lerr}
	}
	return nil
}

// sameListener compares listeners without panicking on uncomparable dynamic types.
func sameListener(a, b domain.StateChangeListener) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// ListenerOnly reports whether err consists exclusively of listener failures.
// Hosts use it to keep a block alive when only its observers failed.
func ListenerOnly(err error) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *domain.ListenerError:
		return true
	case interface{ Unwrap() []error }:
		errs := e.Unwrap()
		if len(errs) == 0 {
			return false
		}
		for _, inner := range errs {
			if !ListenerOnly(inner) {
				return false
			}
		}
		return true
	case interface{ Unwrap() error }:
		return ListenerOnly(e.Unwrap())
	default:
		return err == domain.ErrListenerFailed
	}
}

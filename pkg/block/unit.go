package block

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/forge/internal/logging"
	"github.com/aretw0/forge/pkg/domain"
	"go.uber.org/multierr"
)

// Unit composes a Tracker with a Body and implements Block.
type Unit struct {
	runMu   sync.Mutex
	tracker *Tracker
	body    Body
}

var _ Block = (*Unit)(nil)

// Option configures a Unit.
type Option func(*Unit)

// WithLogger sets the base logger. It is enriched with the block type and id.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Unit) {
		if logger != nil {
			u.tracker.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(u *Unit) {
		if now != nil {
			u.tracker.now = now
		}
	}
}

// WithListeners registers external listeners at construction time.
func WithListeners(listeners ...domain.StateChangeListener) Option {
	return func(u *Unit) {
		for _, l := range listeners {
			u.tracker.addListener(l)
		}
	}
}

// New creates a block in domain.StateCreated.
// typeID and internalID must not be blank.
func New(typeID, internalID, defaultInputText string, body Body, opts ...Option) (*Unit, error) {
	if strings.TrimSpace(typeID) == "" {
		return nil, fmt.Errorf("%w: block type id is required", domain.ErrArgumentShape)
	}
	if strings.TrimSpace(internalID) == "" {
		return nil, fmt.Errorf("%w: internal block id is required", domain.ErrArgumentShape)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: block %s has no body", domain.ErrArgumentShape, internalID)
	}

	u := &Unit{
		body: body,
		tracker: &Tracker{
			typeID:           typeID,
			internalID:       internalID,
			defaultInputText: defaultInputText,
			state:            domain.StateCreated,
			self:             body.OnTransition,
			logger:           logging.NewNop(),
			now:              time.Now,
		},
	}
	for _, opt := range opts {
		opt(u)
	}
	u.tracker.logger = u.tracker.logger.With("block_type", typeID, "block_id", internalID)
	u.tracker.setDiagnostics(body.Diagnostics())
	return u, nil
}

func (u *Unit) TypeID() string              { return u.tracker.TypeID() }
func (u *Unit) InternalID() string          { return u.tracker.InternalID() }
func (u *Unit) DefaultInputText() string    { return u.tracker.DefaultInputText() }
func (u *Unit) State() domain.RunnableState { return u.tracker.State() }
func (u *Unit) ResultText() string          { return u.tracker.ResultText() }
func (u *Unit) Outcome() domain.LineKind    { return u.tracker.Outcome() }
func (u *Unit) Failure() error              { return u.tracker.Failure() }
func (u *Unit) Lines() []domain.Line        { return u.tracker.Lines() }
func (u *Unit) Body() Body                  { return u.body }

// AddStateChangeListener registers an external listener. Duplicates are ignored.
func (u *Unit) AddStateChangeListener(l domain.StateChangeListener) {
	u.tracker.addListener(l)
}

// ResolveLines keeps the lines leaving this block and attaches the flow.
func (u *Unit) ResolveLines(lines []domain.Line, flow Flow) error {
	u.runMu.Lock()
	defer u.runMu.Unlock()
	if u.tracker.State() != domain.StateCreated {
		return fmt.Errorf("block %s: lines must be resolved before the first tick", u.InternalID())
	}
	u.tracker.resolve(lines, flow)
	return nil
}

// Run executes one tick. Calls are serialized per block; a terminal block ignores ticks.
//
// Listener failures do not stop the tick. They are returned together once
// the tick completes; see ListenerOnly. Any other error is returned as soon
// as it happens.
//
// Listeners must not call Run or Fail on the block that notified them.
func (u *Unit) Run(ctx context.Context) error {
	u.runMu.Lock()
	defer u.runMu.Unlock()
	defer u.refreshDiagnostics()

	var listenerErrs error
	advance := func(next domain.RunnableState) error {
		err := u.tracker.SetState(ctx, next)
		if err != nil && ListenerOnly(err) {
			listenerErrs = multierr.Append(listenerErrs, err)
			return nil
		}
		return err
	}

	switch u.tracker.State() {
	case domain.StateCreated:
		if err := advance(domain.StateReady); err != nil {
			return err
		}
		fallthrough
	case domain.StateReady:
		if err := advance(domain.StateRunning); err != nil {
			return err
		}
	case domain.StateDone, domain.StateFailed:
		return nil
	}

	if u.tracker.State() == domain.StateRunning {
		if err := u.body.Step(ctx, u.tracker); err != nil {
			if !ListenerOnly(err) {
				return multierr.Append(err, listenerErrs)
			}
			listenerErrs = multierr.Append(listenerErrs, err)
		}
	}
	return listenerErrs
}

// Fail forces the block into domain.StateFailed, records cause and goes
// further along failure lines. Failing a terminal block is a no-op.
func (u *Unit) Fail(ctx context.Context, cause error) error {
	u.runMu.Lock()
	defer u.runMu.Unlock()
	defer u.refreshDiagnostics()

	if u.tracker.State().IsTerminal() {
		return nil
	}
	if cause == nil {
		cause = fmt.Errorf("block %s failed", u.InternalID())
	}
	u.tracker.recordFailure(cause)
	u.tracker.Logger().Warn("block failed", "err", cause)

	err := u.tracker.SetState(ctx, domain.StateFailed)
	return multierr.Append(err, u.tracker.GoFurtherFailure(ctx))
}

func (u *Unit) refreshDiagnostics() {
	u.tracker.setDiagnostics(u.body.Diagnostics())
}

// PrintableState renders identity, state and diagnostics.
// Diagnostics reflect the block as of its last completed tick.
func (u *Unit) PrintableState() string {
	state, result, hasResult, failure, fields := u.tracker.snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "Block %s [%s]: %s", u.InternalID(), u.TypeID(), state)
	if hasResult {
		fmt.Fprintf(&b, "\nResult: %s", result)
	}
	if failure != nil {
		fmt.Fprintf(&b, "\nFailure: %v", failure)
	}
	for _, f := range fields {
		fmt.Fprintf(&b, "\n%s: %v", f.Label, f.Value)
	}
	return b.String()
}

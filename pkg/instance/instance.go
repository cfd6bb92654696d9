package instance

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/forge/internal/logging"
	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/domain"
)

// Instance is a running graph of blocks connected by lines.
//
// Entry blocks (blocks without incoming lines) are activated when the
// instance starts. Other blocks are activated when a predecessor goes
// further along a line of the matching kind. Every tick runs the active,
// non-terminal blocks in declaration order.
type Instance struct {
	id     string
	name   string
	blocks []block.Block
	byID   map[string]block.Block
	lines  []domain.Line

	tickMu sync.Mutex // serializes ticks

	mu        sync.RWMutex
	state     domain.RunnableState
	active    map[string]bool
	running   map[string]int // running ticks per block, for the tick budget
	unhandled []string       // failed blocks without failure lines
	ticks     int

	budget int
	logger *slog.Logger
	now    func() time.Time
	hooks  []func(ctx context.Context, inst *Instance, old, next domain.RunnableState)
}

var _ block.Flow = (*Instance)(nil)

// Option configures an Instance.
type Option func(*Instance)

// WithLogger sets the instance logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Instance) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithTickBudget forces a block to fail once it has been running for more than n ticks.
// Zero disables the budget.
func WithTickBudget(n int) Option {
	return func(i *Instance) {
		i.budget = n
	}
}

// WithClock overrides the time source used for snapshots.
func WithClock(now func() time.Time) Option {
	return func(i *Instance) {
		if now != nil {
			i.now = now
		}
	}
}

// New assembles an instance and resolves lines on every block.
// Block ids must be unique and every line must connect existing blocks.
func New(id, name string, blocks []block.Block, lines []domain.Line, opts ...Option) (*Instance, error) {
	if id == "" {
		return nil, fmt.Errorf("instance id is required")
	}

	inst := &Instance{
		id:      id,
		name:    name,
		blocks:  append([]block.Block(nil), blocks...),
		byID:    make(map[string]block.Block, len(blocks)),
		lines:   append([]domain.Line(nil), lines...),
		state:   domain.StateCreated,
		active:  make(map[string]bool),
		running: make(map[string]int),
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(inst)
	}
	inst.logger = inst.logger.With("instance_id", id)

	for _, b := range blocks {
		if b == nil {
			return nil, fmt.Errorf("instance %s: nil block", id)
		}
		if _, dup := inst.byID[b.InternalID()]; dup {
			return nil, fmt.Errorf("instance %s: duplicate block id %q", id, b.InternalID())
		}
		inst.byID[b.InternalID()] = b
	}
	for _, l := range lines {
		if _, ok := inst.byID[l.From]; !ok {
			return nil, fmt.Errorf("instance %s: line %s: %w %q", id, l.ID, domain.ErrUnknownBlock, l.From)
		}
		if _, ok := inst.byID[l.To]; !ok {
			return nil, fmt.Errorf("instance %s: line %s: %w %q", id, l.ID, domain.ErrUnknownBlock, l.To)
		}
		if k := l.EffectiveKind(); k != domain.LineNormal && k != domain.LineFailure {
			return nil, fmt.Errorf("instance %s: line %s: unknown kind %q", id, l.ID, l.Kind)
		}
	}
	for _, b := range blocks {
		if err := b.ResolveLines(inst.lines, inst); err != nil {
			return nil, fmt.Errorf("instance %s: %w", id, err)
		}
	}
	return inst, nil
}

func (i *Instance) ID() string            { return i.id }
func (i *Instance) Name() string          { return i.name }
func (i *Instance) Blocks() []block.Block { return append([]block.Block(nil), i.blocks...) }
func (i *Instance) Lines() []domain.Line  { return append([]domain.Line(nil), i.lines...) }

// Block returns the block with the given internal id.
func (i *Instance) Block(id string) (block.Block, error) {
	b, ok := i.byID[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w %q", i.id, domain.ErrUnknownBlock, id)
	}
	return b, nil
}

// State returns the instance state.
func (i *Instance) State() domain.RunnableState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Ticks returns how many ticks the instance has processed.
func (i *Instance) Ticks() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ticks
}

// Active reports whether the block has been activated.
func (i *Instance) Active(blockID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.active[blockID]
}

// OnStateChange registers a hook called on every instance transition.
func (i *Instance) OnStateChange(hook func(ctx context.Context, inst *Instance, old, next domain.RunnableState)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hooks = append(i.hooks, hook)
}

// Start schedules the instance: it becomes ready and its entry blocks are activated.
func (i *Instance) Start(ctx context.Context) error {
	incoming := make(map[string]bool, len(i.lines))
	for _, l := range i.lines {
		incoming[l.To] = true
	}

	if err := i.transition(ctx, domain.StateReady); err != nil {
		return err
	}

	i.mu.Lock()
	for _, b := range i.blocks {
		if !incoming[b.InternalID()] {
			i.active[b.InternalID()] = true
		}
	}
	i.mu.Unlock()

	// A graph without entry blocks (or without blocks) has nothing to do.
	return i.evaluate(ctx)
}

// GoFurther activates the targets of the given lines that match kind.
// A failure without any failure line marks the instance as failed.
func (i *Instance) GoFurther(ctx context.Context, blockID string, kind domain.LineKind, lines []domain.Line) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	followed := 0
	for _, l := range lines {
		if l.From != blockID || l.EffectiveKind() != kind {
			continue
		}
		if _, ok := i.byID[l.To]; !ok {
			return fmt.Errorf("instance %s: line %s: %w %q", i.id, l.ID, domain.ErrUnknownBlock, l.To)
		}
		i.active[l.To] = true
		followed++
		i.logger.Debug("line followed", "line", l.ID, "from", l.From, "to", l.To, "kind", kind)
	}
	if kind == domain.LineFailure && followed == 0 {
		i.unhandled = append(i.unhandled, blockID)
	}
	return nil
}

// Tick runs every active, non-terminal block once.
//
// Errors returned by a block are handled here: listener failures are logged
// and the block keeps running, any other error (or panic) fails the block.
// Tick itself only returns an error when the instance cannot be evaluated.
func (i *Instance) Tick(ctx context.Context) error {
	i.tickMu.Lock()
	defer i.tickMu.Unlock()

	switch i.State() {
	case domain.StateCreated, domain.StateDone, domain.StateFailed:
		return nil
	case domain.StateReady:
		if err := i.transition(ctx, domain.StateRunning); err != nil {
			return err
		}
	}

	i.mu.Lock()
	i.ticks++
	due := make([]block.Block, 0, len(i.blocks))
	for _, b := range i.blocks {
		if i.active[b.InternalID()] && !b.State().IsTerminal() {
			due = append(due, b)
		}
	}
	i.mu.Unlock()

	for _, b := range due {
		i.runBlock(ctx, b)
	}
	return i.evaluate(ctx)
}

func (i *Instance) runBlock(ctx context.Context, b block.Block) {
	log := i.logger.With("block_id", b.InternalID())

	err := safeRun(ctx, b)
	switch {
	case err == nil:
	case block.ListenerOnly(err):
		log.Warn("state change listener failed", "err", err)
	default:
		log.Error("block tick failed", "err", err)
		if ferr := b.Fail(ctx, err); ferr != nil {
			log.Warn("failure notification incomplete", "err", ferr)
		}
		return
	}

	if b.State() != domain.StateRunning || i.budget <= 0 {
		return
	}
	i.mu.Lock()
	i.running[b.InternalID()]++
	exceeded := i.running[b.InternalID()] > i.budget
	i.mu.Unlock()

	if exceeded {
		cause := fmt.Errorf("block %s: %w (%d ticks)", b.InternalID(), domain.ErrTickBudgetExceeded, i.budget)
		if ferr := b.Fail(ctx, cause); ferr != nil {
			log.Warn("failure notification incomplete", "err", ferr)
		}
	}
}

func safeRun(ctx context.Context, b block.Block) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in block %s: %v", b.InternalID(), r)
		}
	}()
	return b.Run(ctx)
}

// evaluate derives the instance state from its blocks.
func (i *Instance) evaluate(ctx context.Context) error {
	i.mu.RLock()
	state := i.state
	failed := len(i.unhandled) > 0
	pending := false
	for _, b := range i.blocks {
		if i.active[b.InternalID()] && !b.State().IsTerminal() {
			pending = true
			break
		}
	}
	i.mu.RUnlock()

	if state.IsTerminal() || state == domain.StateCreated {
		return nil
	}
	switch {
	case failed:
		return i.transition(ctx, domain.StateFailed)
	case !pending:
		if state == domain.StateReady {
			if err := i.transition(ctx, domain.StateRunning); err != nil {
				return err
			}
		}
		return i.transition(ctx, domain.StateDone)
	}
	return nil
}

func (i *Instance) transition(ctx context.Context, next domain.RunnableState) error {
	i.mu.Lock()
	old := i.state
	if err := domain.ValidateTransition(old, next); err != nil {
		i.mu.Unlock()
		return fmt.Errorf("instance %s: %w", i.id, err)
	}
	i.state = next
	hooks := slices.Clone(i.hooks)
	i.mu.Unlock()

	i.logger.Info("instance state changed", "old", old, "new", next)
	for _, h := range hooks {
		h(ctx, i, old, next)
	}
	return nil
}

// Snapshot captures the instance and its blocks.
func (i *Instance) Snapshot() *domain.InstanceSnapshot {
	i.mu.RLock()
	snap := &domain.InstanceSnapshot{
		ID:        i.id,
		Name:      i.name,
		State:     i.state,
		Tick:      i.ticks,
		UpdatedAt: i.now().UTC(),
	}
	active := make(map[string]bool, len(i.active))
	for k, v := range i.active {
		active[k] = v
	}
	i.mu.RUnlock()

	for _, b := range i.blocks {
		snap.Blocks = append(snap.Blocks, domain.BlockSnapshot{
			ID:        b.InternalID(),
			TypeID:    b.TypeID(),
			State:     b.State(),
			Active:    active[b.InternalID()],
			Result:    b.ResultText(),
			Printable: b.PrintableState(),
		})
	}
	return snap
}

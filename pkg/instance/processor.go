package instance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/forge/internal/logging"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/ports"
	"go.uber.org/multierr"
)

const defaultLockTTL = 30 * time.Second

// Processor is the host scheduler. Every ProcessTick ticks all live
// instances; instances are ticked concurrently, blocks of one instance
// sequentially.
type Processor struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	order     []string

	logger    *slog.Logger
	budget    int
	store     ports.SnapshotStore
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	listeners []domain.StateChangeListener
	hooks     []func(ctx context.Context, inst *Instance, old, next domain.RunnableState)
	ticked    []func(ctx context.Context, inst *Instance)
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the scheduler logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDefaultTickBudget applies a tick budget to instances added without one.
func WithDefaultTickBudget(n int) ProcessorOption {
	return func(p *Processor) {
		p.budget = n
	}
}

// WithSnapshotStore persists a snapshot of every instance after each tick.
func WithSnapshotStore(store ports.SnapshotStore) ProcessorOption {
	return func(p *Processor) {
		p.store = store
	}
}

// WithLocker guards every instance tick with a distributed lock.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.locker = locker
		if ttl > 0 {
			p.lockTTL = ttl
		}
	}
}

// WithListener subscribes l to every block of every instance added afterwards.
func WithListener(l domain.StateChangeListener) ProcessorOption {
	return func(p *Processor) {
		p.listeners = append(p.listeners, l)
	}
}

// WithInstanceHook registers a hook on every instance added afterwards.
func WithInstanceHook(hook func(ctx context.Context, inst *Instance, old, next domain.RunnableState)) ProcessorOption {
	return func(p *Processor) {
		p.hooks = append(p.hooks, hook)
	}
}

// WithTickHook registers a hook called after every instance tick.
func WithTickHook(hook func(ctx context.Context, inst *Instance)) ProcessorOption {
	return func(p *Processor) {
		p.ticked = append(p.ticked, hook)
	}
}

// NewProcessor creates an empty scheduler.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{
		instances: make(map[string]*Instance),
		logger:    logging.NewNop(),
		lockTTL:   defaultLockTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddInstance registers inst. With domain.StateReady the instance is
// started immediately; with domain.StateCreated it waits for Start.
func (p *Processor) AddInstance(ctx context.Context, inst *Instance, state domain.RunnableState) error {
	if state != domain.StateCreated && state != domain.StateReady {
		return fmt.Errorf("instance %s: cannot be added in state %s", inst.ID(), state)
	}

	p.mu.Lock()
	if _, exists := p.instances[inst.ID()]; exists {
		p.mu.Unlock()
		return fmt.Errorf("instance %s already added", inst.ID())
	}
	p.instances[inst.ID()] = inst
	p.order = append(p.order, inst.ID())
	p.mu.Unlock()

	if inst.budget == 0 {
		inst.budget = p.budget
	}
	for _, l := range p.listeners {
		for _, b := range inst.blocks {
			b.AddStateChangeListener(l)
		}
	}
	for _, h := range p.hooks {
		inst.OnStateChange(h)
	}

	p.logger.Info("instance added", "instance_id", inst.ID(), "name", inst.Name(), "blocks", len(inst.blocks))
	if state == domain.StateReady {
		return inst.Start(ctx)
	}
	return nil
}

// Instance returns a registered instance.
func (p *Processor) Instance(id string) (*Instance, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	inst, ok := p.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInstanceNotFound, id)
	}
	return inst, nil
}

// Instances returns registered instances in insertion order.
func (p *Processor) Instances() []*Instance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Instance, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.instances[id])
	}
	return out
}

// Remove forgets an instance.
func (p *Processor) Remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.instances[id]; !ok {
		return
	}
	delete(p.instances, id)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Idle reports whether every instance is terminal.
func (p *Processor) Idle() bool {
	for _, inst := range p.Instances() {
		if !inst.State().IsTerminal() {
			return false
		}
	}
	return true
}

// ProcessTick ticks every non-terminal instance once.
// Returned errors come from locking, evaluation or persistence, never from blocks.
func (p *Processor) ProcessTick(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		emu  sync.Mutex
		errs error
	)
	for _, inst := range p.Instances() {
		if inst.State().IsTerminal() {
			continue
		}
		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()
			if err := p.tickInstance(ctx, inst); err != nil {
				emu.Lock()
				errs = multierr.Append(errs, err)
				emu.Unlock()
			}
		}(inst)
	}
	wg.Wait()
	return errs
}

// RunUntilIdle ticks until every instance is terminal, ctx is done or
// maxTicks ticks have been processed. It returns the number of ticks run.
func (p *Processor) RunUntilIdle(ctx context.Context, maxTicks int) (int, error) {
	n := 0
	for ; n < maxTicks && !p.Idle(); n++ {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := p.ProcessTick(ctx); err != nil {
			return n + 1, err
		}
	}
	return n, nil
}

func (p *Processor) tickInstance(ctx context.Context, inst *Instance) error {
	if p.locker != nil {
		unlock, err := p.locker.Lock(ctx, "instance:"+inst.ID(), p.lockTTL)
		if err != nil {
			return fmt.Errorf("instance %s: lock: %w", inst.ID(), err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("failed to release instance lock", "instance_id", inst.ID(), "err", err)
			}
		}()
	}

	if err := inst.Tick(ctx); err != nil {
		return err
	}
	for _, h := range p.ticked {
		h(ctx, inst)
	}

	if p.store != nil {
		if err := p.store.Save(ctx, inst.Snapshot()); err != nil {
			return fmt.Errorf("instance %s: save snapshot: %w", inst.ID(), err)
		}
	}
	return nil
}

package example

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/domain"
)

const (
	// BlockOneTypeID identifies the first example block.
	BlockOneTypeID = "example-block-01"
	// BlockOneCountMax is the counter value block one must exceed to finish.
	BlockOneCountMax = 5
)

// BlockOne counts running ticks and finishes once the counter exceeds BlockOneCountMax.
type BlockOne struct {
	counter atomic.Int64
}

var _ block.Body = (*BlockOne)(nil)

// NewBlockOne builds example block 01.
func NewBlockOne(internalBlockID, defaultInputText string, opts ...block.Option) (*block.Unit, error) {
	return block.New(BlockOneTypeID, internalBlockID, defaultInputText, &BlockOne{}, opts...)
}

// Counter returns the number of running ticks seen in the current run.
// It is safe to call while the block is ticking.
func (b *BlockOne) Counter() int { return int(b.counter.Load()) }

func (b *BlockOne) OnTransition(ctx context.Context, t *block.Tracker, e domain.StateChangeEvent) error {
	switch e.New {
	case domain.StateRunning:
		t.Logger().Debug("new state: running example block 01")
		b.counter.Store(0)
	case domain.StateDone:
		t.Logger().Debug("new state: done example block 01")
		return t.GoFurtherNormal(ctx)
	}
	return nil
}

func (b *BlockOne) Step(ctx context.Context, t *block.Tracker) error {
	t.Logger().Debug("running example block 01")

	n := b.counter.Add(1)
	if n <= BlockOneCountMax {
		return nil
	}
	if err := t.SetResultText(fmt.Sprintf("This is the result text of the example block 01, counter: %d", n)); err != nil {
		return err
	}
	return t.SetState(ctx, domain.StateDone)
}

func (b *BlockOne) Diagnostics() []block.Field {
	return []block.Field{{Label: "Counter", Value: b.Counter()}}
}

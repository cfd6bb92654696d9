package example

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/domain"
)

const (
	// BlockTwoTypeID identifies the second example block.
	BlockTwoTypeID = "example-block-02"
	// BlockTwoCountMax is the counter value block two must exceed to finish.
	BlockTwoCountMax = 3
)

// BlockTwo is like BlockOne with a lower threshold, and logs its progress at info level.
type BlockTwo struct {
	counter atomic.Int64
}

var _ block.Body = (*BlockTwo)(nil)

// NewBlockTwo builds example block 02.
func NewBlockTwo(internalBlockID, defaultInputText string, opts ...block.Option) (*block.Unit, error) {
	return block.New(BlockTwoTypeID, internalBlockID, defaultInputText, &BlockTwo{}, opts...)
}

// Counter returns the number of running ticks seen in the current run.
// It is safe to call while the block is ticking.
func (b *BlockTwo) Counter() int { return int(b.counter.Load()) }

func (b *BlockTwo) OnTransition(ctx context.Context, t *block.Tracker, e domain.StateChangeEvent) error {
	switch e.New {
	case domain.StateRunning:
		t.Logger().Debug("new state: running block " + t.InternalID())
		b.counter.Store(0)
	case domain.StateDone:
		t.Logger().Debug("new state: done block " + t.InternalID())
		return t.GoFurtherNormal(ctx)
	}
	return nil
}

func (b *BlockTwo) Step(ctx context.Context, t *block.Tracker) error {
	t.Logger().Info("running block " + t.InternalID())

	n := b.counter.Add(1)
	if n <= BlockTwoCountMax {
		return nil
	}
	result := fmt.Sprintf("Result text of the %s: %d", t.InternalID(), n)
	t.Logger().Info(result)
	if err := t.SetResultText(result); err != nil {
		return err
	}
	return t.SetState(ctx, domain.StateDone)
}

func (b *BlockTwo) Diagnostics() []block.Field {
	return []block.Field{{Label: "Counter", Value: b.Counter()}}
}

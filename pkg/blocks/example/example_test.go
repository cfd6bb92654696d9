package example_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/forge/pkg/block"
	"github.com/aretw0/forge/pkg/blocks/example"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tick(t *testing.T, b block.Block, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, b.Run(context.Background()))
	}
}

func TestBuilderService_Metadata(t *testing.T) {
	svc := example.NewBuilderService()

	assert.Equal(t, "2.0.5", svc.ExpectedEngineVersion())
	assert.Equal(t, []string{example.BlockOneTypeID, example.BlockTwoTypeID}, svc.SupportedBlockTypeIDs())
}

func TestBuilderService_BuildBlockOne(t *testing.T) {
	svc := example.NewBuilderService()

	b, err := svc.Build(example.BlockOneTypeID, registry.Text("id1"), registry.Text("text1"))
	require.NoError(t, err)

	assert.Equal(t, "id1", b.InternalID())
	assert.Equal(t, "text1", b.DefaultInputText())
	assert.Equal(t, example.BlockOneTypeID, b.TypeID())
	assert.Equal(t, domain.StateCreated, b.State())
}

func TestBuilderService_Errors(t *testing.T) {
	svc := example.NewBuilderService()

	_, err := svc.Build(example.BlockOneTypeID, registry.Text("id1"))
	assert.ErrorIs(t, err, domain.ErrArgumentShape)

	_, err = svc.Build(example.BlockOneTypeID, registry.Text("id1"), registry.Int(7))
	assert.ErrorIs(t, err, domain.ErrArgumentShape)

	_, err = svc.Build("unknown-type", registry.Text("a"), registry.Text("b"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestBuilderService_BuildNamed(t *testing.T) {
	svc := example.NewBuilderService()

	b, err := svc.BuildNamed(example.BlockTwoTypeID, map[string]any{
		"internal_block_id":  "named",
		"default_input_text": "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "named", b.InternalID())
	assert.Equal(t, "hello", b.DefaultInputText())
}

func TestBlockOne_FinishesAfterSixTicks(t *testing.T) {
	b, err := example.NewBlockOne("block1", "input")
	require.NoError(t, err)

	tick(t, b, example.BlockOneCountMax)
	assert.Equal(t, domain.StateRunning, b.State())
	assert.Empty(t, b.ResultText())

	tick(t, b, 1)
	assert.Equal(t, domain.StateDone, b.State())
	assert.Equal(t, "This is the result text of the example block 01, counter: 6", b.ResultText())
	assert.Equal(t, "Block block1 [example-block-01]: done\nResult: "+b.ResultText()+"\nCounter: 6", b.PrintableState())

	tick(t, b, 3)
	assert.Equal(t, 6, b.Body().(*example.BlockOne).Counter(), "done blocks ignore ticks")
}

func TestBlockTwo_FinishesAfterFourTicks(t *testing.T) {
	b, err := example.NewBlockTwo("block2", "input")
	require.NoError(t, err)

	tick(t, b, example.BlockTwoCountMax)
	assert.Equal(t, domain.StateRunning, b.State())

	tick(t, b, 1)
	assert.Equal(t, domain.StateDone, b.State())
	assert.Equal(t, "Result text of the block2: 4", b.ResultText())
	assert.Contains(t, b.PrintableState(), "Counter: 4")
}

func TestBlockTwo_CounterReadsDuringTicks(t *testing.T) {
	b, err := example.NewBlockTwo("block2", "input")
	require.NoError(t, err)
	body := b.Body().(*example.BlockTwo)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for b.State() != domain.StateDone {
			_ = body.Counter()
		}
	}()
	tick(t, b, example.BlockTwoCountMax+1)
	<-done

	assert.Equal(t, example.BlockTwoCountMax+1, body.Counter())
}

func TestBlocks_EventsMatchState(t *testing.T) {
	svc := example.NewBuilderService()

	for _, typeID := range svc.SupportedBlockTypeIDs() {
		t.Run(typeID, func(t *testing.T) {
			b, err := svc.Build(typeID, registry.Text("b"), registry.Text(""))
			require.NoError(t, err)

			var events []domain.StateChangeEvent
			b.AddStateChangeListener(domain.StateChangeListenerFunc(func(_ context.Context, e domain.StateChangeEvent) error {
				events = append(events, e)
				return nil
			}))

			for i := 0; i < 10; i++ {
				before := len(events)
				require.NoError(t, b.Run(context.Background()))
				if len(events) > before {
					assert.Equal(t, b.State(), events[len(events)-1].New, fmt.Sprintf("tick %d", i))
				}
			}

			require.Len(t, events, 3)
			assert.Equal(t, []domain.RunnableState{domain.StateReady, domain.StateRunning, domain.StateDone},
				[]domain.RunnableState{events[0].New, events[1].New, events[2].New})
		})
	}
}

type flowRecorder struct{ kinds []domain.LineKind }

func (f *flowRecorder) GoFurther(_ context.Context, _ string, kind domain.LineKind, _ []domain.Line) error {
	f.kinds = append(f.kinds, kind)
	return nil
}

func TestBlocks_GoFurtherNormalOnDone(t *testing.T) {
	b, err := example.NewBlockTwo("block2", "")
	require.NoError(t, err)
	flow := &flowRecorder{}
	require.NoError(t, b.ResolveLines([]domain.Line{{ID: "2-3", From: "block2", To: "block3"}}, flow))

	tick(t, b, example.BlockTwoCountMax+1)

	assert.Equal(t, []domain.LineKind{domain.LineNormal}, flow.kinds)
	assert.Equal(t, domain.LineNormal, b.Outcome())
}

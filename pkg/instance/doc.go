/*
Package instance is the minimal host that drives blocks: an Instance model
that connects blocks with lines, and a Processor that ticks every live
instance.

	svc := example.NewBuilderService()
	b1, _ := svc.Build(example.BlockOneTypeID, registry.Text("block1"), registry.Text("in"))
	b2, _ := svc.Build(example.BlockTwoTypeID, registry.Text("block2"), registry.Text("in"))

	inst, err := instance.New("1", "demo", []block.Block{b1, b2},
		[]domain.Line{{ID: "1-2", From: "block1", To: "block2"}})
	...
	p := instance.NewProcessor()
	_ = p.AddInstance(ctx, inst, domain.StateReady)
	_, _ = p.RunUntilIdle(ctx, 100)

An instance is done when no active block is left running and no block failed
without a failure line; it is failed otherwise.
*/
package instance

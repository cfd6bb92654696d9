/*
Package example provides two counter blocks and the builder service that
constructs them.

Both blocks follow the same pattern: the counter is reset on the positive
edge of running, incremented on every running tick, and the block finishes
once the counter exceeds its maximum. On the done edge each block goes
further along its normal lines.

	svc := example.NewBuilderService()
	b, err := svc.Build(example.BlockOneTypeID, registry.Text("block1"), registry.Text("input"))
*/
package example

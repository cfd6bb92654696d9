/*
Package dsl provides a Go DSL for programmatically constructing block instances.

It replaces a YAML or JSON definition with a fluent builder, which is handy for
generated graphs and tests.

Example usage:

	b := dsl.New("my-flow").Name("My flow")

	b.Add("block1", example.BlockOneTypeID).
		Input("hello").
		Go("block2").
		OnFailure("cleanup")

	b.Add("block2", example.BlockTwoTypeID)
	b.Add("cleanup", example.BlockTwoTypeID)

	inst, err := b.Build(catalog)
	// ... hand inst to an instance.Processor
*/
package dsl

package example_test

import (
	"context"
	"fmt"

	"github.com/aretw0/forge/pkg/blocks/example"
	"github.com/aretw0/forge/pkg/registry"
)

func ExampleNewBuilderService() {
	svc := example.NewBuilderService()

	b, err := svc.Build(example.BlockTwoTypeID, registry.Text("block2"), registry.Text("hello"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	for !b.State().IsTerminal() {
		if err := b.Run(context.Background()); err != nil {
			fmt.Println("error:", err)
			return
		}
	}

	fmt.Println(b.PrintableState())
	// Output:
	// Block block2 [example-block-02]: done
	// Result: Result text of the block2: 4
	// Counter: 4
}

package main

import (
	"fmt"

	"github.com/aretw0/forge/internal/cli"
	"github.com/aretw0/forge/internal/definition"
	"github.com/aretw0/forge/internal/logging"
	"github.com/aretw0/forge/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <definition.yaml>",
	Short: "Print the instance graph as a Mermaid flowchart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := definition.Load(args[0])
		if err != nil {
			return err
		}
		catalog, err := cli.NewCatalog(logging.NewNop())
		if err != nil {
			return err
		}
		inst, err := def.Assemble(catalog)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(inst.Snapshot().Blocks, inst.Lines(), false))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

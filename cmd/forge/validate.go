package main

import (
	"fmt"

	"github.com/aretw0/forge/internal/cli"
	"github.com/aretw0/forge/internal/definition"
	"github.com/aretw0/forge/internal/logging"
	"github.com/aretw0/forge/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition.yaml>...",
	Short: "Check definitions for consistency",
	Long:  `Builds every block of each definition and reports broken lines or unreachable blocks.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := cli.NewCatalog(logging.NewNop())
		if err != nil {
			return err
		}
		for _, path := range args {
			if err := runValidate(catalog, path); err != nil {
				return fmt.Errorf("%s: validation failed: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: graph is valid\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(b definition.Builder, path string) error {
	def, err := definition.Load(path)
	if err != nil {
		return err
	}
	inst, err := def.Assemble(b)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(inst.Blocks()))
	for _, blk := range inst.Blocks() {
		ids = append(ids, blk.InternalID())
	}
	return validator.ValidateGraph(ids, inst.Lines())
}

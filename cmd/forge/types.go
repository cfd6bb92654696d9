package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/forge/internal/cli"
	"github.com/aretw0/forge/internal/logging"
	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the block types that can be built",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")

		catalog, err := cli.NewCatalog(logging.NewNop())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		type entry struct {
			TypeID        string   `json:"type_id"`
			EngineVersion string   `json:"engine_version"`
			Params        []string `json:"params"`
		}
		for _, id := range catalog.SupportedBlockTypeIDs() {
			reg, err := catalog.RegistryFor(id)
			if err != nil {
				return err
			}
			params, err := reg.Params(id)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(params))
			for _, p := range params {
				names = append(names, fmt.Sprintf("%s:%s", p.Name, p.Kind))
			}

			if jsonMode {
				if err := json.NewEncoder(out).Encode(entry{id, reg.ExpectedEngineVersion(), names}); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(out, "%-20s %-8s %s\n", id, reg.ExpectedEngineVersion(), strings.Join(names, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
	typesCmd.Flags().Bool("json", false, "Print one JSON object per type")
}

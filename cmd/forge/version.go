package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/forge"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of forge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "forge version %s (engine %s)\n", strings.TrimSpace(forge.Version), forge.EngineVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

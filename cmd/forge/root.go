package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/forge/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "forge",
	Short:         "Forge hosts polled block state machines",
	Long:          `Forge builds blocks from a registry, wires them into instances described by YAML files and ticks them until they are done.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", logging.FormatText, "Log format (text, json)")
}

// newLogger builds the logger from the persistent flags.
func newLogger(cmd *cobra.Command) (*slog.Logger, bool, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, false, err
	}
	logger, err := logging.New(level, format)
	if err != nil {
		return nil, false, err
	}
	return logger, level <= slog.LevelDebug, nil
}

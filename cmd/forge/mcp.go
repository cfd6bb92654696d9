package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/forge/internal/cli"
	mcpAdapter "github.com/aretw0/forge/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [definition.yaml]...",
	Short: "Expose instances as an MCP server",
	Long: `Loads the definitions and serves list, inspect and tick tools over the Model Context Protocol.
Instances only advance when a client calls tick.

Transports:
- stdio: standard input/output, for local agents.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, debug, err := newLogger(cmd)
		if err != nil {
			return err
		}
		opts, err := runOptions(cmd, args)
		if err != nil {
			return err
		}
		opts.Debug = debug

		rt, err := cli.Load(cmd.Context(), opts, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		srv := mcpAdapter.NewServer(rt.Processor, rt.Catalog, mcpAdapter.WithLogger(logger))
		transport, _ := cmd.Flags().GetString("transport")
		switch transport {
		case "stdio":
			return srv.ServeStdio()
		case "sse":
			port, _ := cmd.Flags().GetInt("port")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ServeSSE(ctx, port)
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	addRunFlags(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/forge/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [definition.yaml]...",
	Short: "Tick instances in the background and expose them over HTTP",
	Long:  `Starts the processor loop and an HTTP server with /types, /instances, /events and /metrics.`,
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
		if opts.Interval, err = cmd.Flags().GetDuration("interval"); err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.Serve(ctx, opts, logger, ":"+port)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addRunFlags(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Duration("interval", cli.DefaultInterval, "Tick period")
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/forge"
	"github.com/aretw0/forge/internal/cli"
	"github.com/aretw0/forge/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [definition.yaml]...",
	Short: "Run instances until they are done",
	Long:  `Loads every definition, ticks the instances until all of them are terminal and prints a report per instance.`,
	Args:  cobra.ArbitraryArgs,
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

		render := tui.NewRenderer(os.Stdout)
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet && !opts.JSON {
			tui.PrintBanner(cmd.ErrOrStderr(), forge.Version)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.RunBatch(ctx, opts, logger, cmd.OutOrStdout(), render)
	},
}

func runOptions(cmd *cobra.Command, args []string) (cli.RunOptions, error) {
	f := cmd.Flags()
	opts := cli.RunOptions{Files: args}
	var err error
	if opts.Dir, err = f.GetString("dir"); err != nil {
		return opts, err
	}
	if opts.MaxTicks, err = f.GetInt("max-ticks"); err != nil {
		return opts, err
	}
	if opts.TickBudget, err = f.GetInt("tick-budget"); err != nil {
		return opts, err
	}
	if opts.JSON, err = f.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.StoreDir, err = f.GetString("store-dir"); err != nil {
		return opts, err
	}
	if opts.StoreKey, err = f.GetString("store-key"); err != nil {
		return opts, err
	}
	if opts.Redact, err = f.GetStringSlice("redact"); err != nil {
		return opts, err
	}
	if opts.RedisAddr, err = f.GetString("redis"); err != nil {
		return opts, err
	}
	if opts.RedisPassword, err = f.GetString("redis-password"); err != nil {
		return opts, err
	}
	if opts.RedisDB, err = f.GetInt("redis-db"); err != nil {
		return opts, err
	}
	if opts.RedisTTL, err = f.GetDuration("redis-ttl"); err != nil {
		return opts, err
	}
	return opts, nil
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("dir", "", "Load every definition document (markdown or JSON) in this directory")
	cmd.Flags().Int("max-ticks", cli.DefaultMaxTicks, "Stop after this many ticks")
	cmd.Flags().Int("tick-budget", 0, "Fail blocks running for more than this many ticks (0 disables)")
	cmd.Flags().Bool("json", false, "Print NDJSON snapshots instead of reports")
	cmd.Flags().String("store-dir", "", "Directory for JSON snapshots (memory when empty)")
	cmd.Flags().String("store-key", os.Getenv("FORGE_STORE_KEY"), "Hex AES-256 key to encrypt stored snapshots (env FORGE_STORE_KEY)")
	cmd.Flags().StringSlice("redact", nil, "Mask output of blocks whose id or type matches these patterns in stored snapshots")
	cmd.Flags().String("redis", "", "Redis address for snapshots and locks (overrides --store-dir)")
	cmd.Flags().String("redis-password", "", "Redis password")
	cmd.Flags().Int("redis-db", 0, "Redis database")
	cmd.Flags().Duration("redis-ttl", 0, "Snapshot TTL in Redis (0 keeps them)")
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
	runCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}

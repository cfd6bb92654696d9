package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/forge/internal/definition"
	"github.com/aretw0/forge/internal/presentation/tui"
	"github.com/aretw0/forge/pkg/domain"
	"github.com/aretw0/forge/pkg/instance"
)

// DefaultMaxTicks bounds a batch run.
const DefaultMaxTicks = 1000

// ErrInstancesFailed is returned by RunBatch when an instance ends failed.
var ErrInstancesFailed = errors.New("one or more instances failed")

// RunBatch loads every definition file, runs the instances to completion
// and writes one report per instance to out. With opts.JSON the reports are
// NDJSON snapshots; otherwise markdown rendered by render.
func RunBatch(ctx context.Context, opts RunOptions, logger *slog.Logger, out io.Writer, render func(string) (string, error)) error {
	if len(opts.Files) == 0 && opts.Dir == "" {
		return fmt.Errorf("no definition files given")
	}
	rt, err := newRuntime(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	insts, err := loadInstances(ctx, rt, opts, logger)
	if err != nil {
		return err
	}

	maxTicks := opts.MaxTicks
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}
	ticks, err := rt.Processor.RunUntilIdle(ctx, maxTicks)
	if err != nil {
		return err
	}
	logger.Info("batch finished", "ticks", ticks, "instances", len(insts))
	if !rt.Processor.Idle() {
		return fmt.Errorf("instances still running after %d ticks", ticks)
	}

	failed := false
	enc := json.NewEncoder(out)
	for _, inst := range insts {
		snap := inst.Snapshot()
		failed = failed || snap.State == domain.StateFailed
		if opts.JSON {
			if err := enc.Encode(snap); err != nil {
				return err
			}
			continue
		}
		rendered, err := render(tui.Report(snap))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, rendered)
	}
	if failed {
		return ErrInstancesFailed
	}
	return nil
}

func loadDefinitions(ctx context.Context, opts RunOptions) ([]*definition.Definition, error) {
	defs := make([]*definition.Definition, 0, len(opts.Files))
	for _, path := range opts.Files {
		def, err := definition.Load(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if opts.Dir != "" {
		fromDir, err := definition.LoadDir(ctx, opts.Dir)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fromDir...)
	}
	return defs, nil
}

func loadInstances(ctx context.Context, rt *Runtime, opts RunOptions, logger *slog.Logger) ([]*instance.Instance, error) {
	defs, err := loadDefinitions(ctx, opts)
	if err != nil {
		return nil, err
	}
	insts := make([]*instance.Instance, 0, len(defs))
	for _, def := range defs {
		inst, err := def.Assemble(rt.Catalog, instance.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := rt.Processor.AddInstance(ctx, inst, domain.StateReady); err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}
	return insts, nil
}

// Load wires a runtime and schedules every definition in opts.Files and opts.Dir as a
// ready instance. The caller owns the runtime and must Close it.
func Load(ctx context.Context, opts RunOptions, logger *slog.Logger) (*Runtime, error) {
	rt, err := newRuntime(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	if _, err := loadInstances(ctx, rt, opts, logger); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

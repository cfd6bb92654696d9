package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/forge"
	"github.com/aretw0/forge/pkg/adapters/file"
	"github.com/aretw0/forge/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/forge/pkg/adapters/redis"
	"github.com/aretw0/forge/pkg/blocks/example"
	"github.com/aretw0/forge/pkg/instance"
	"github.com/aretw0/forge/pkg/observability"
	"github.com/aretw0/forge/pkg/persistence/middleware"
	"github.com/aretw0/forge/pkg/ports"
	"github.com/aretw0/forge/pkg/registry"
)

// RunOptions are the settings shared by the run and serve commands.
type RunOptions struct {
	Files      []string
	Dir        string
	MaxTicks   int
	TickBudget int
	Interval   time.Duration
	JSON       bool
	Debug      bool
	StoreDir   string
	StoreKey   string   // hex AES-256 key; snapshots are encrypted when set
	Redact     []string // block id or type patterns masked in snapshots

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

// Runtime bundles the pieces a command needs.
type Runtime struct {
	Catalog   *registry.Catalog
	Processor *instance.Processor
	Store     ports.SnapshotStore
	Metrics   *observability.Metrics
	closers   []func() error
}

// Close releases backend connections.
func (rt *Runtime) Close() error {
	var first error
	for _, c := range rt.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewCatalog returns the catalog of block types shipped with forge.
func NewCatalog(logger *slog.Logger) (*registry.Catalog, error) {
	svc := example.NewBuilderService(registry.WithLogger(logger))
	return registry.NewCatalog(forge.EngineVersion, svc)
}

// newRuntime wires catalog, snapshot store, locker and observability with
// standard CLI conventions: Redis when an address is given, a snapshot
// directory when one is given, memory otherwise.
func newRuntime(ctx context.Context, opts RunOptions, logger *slog.Logger, extra ...instance.ProcessorOption) (*Runtime, error) {
	catalog, err := NewCatalog(logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing catalog: %w", err)
	}

	rt := &Runtime{Catalog: catalog, Metrics: observability.NewMetrics()}

	procOpts := []instance.ProcessorOption{
		instance.WithProcessorLogger(logger),
		instance.WithDefaultTickBudget(opts.TickBudget),
		instance.WithListener(rt.Metrics),
		instance.WithInstanceHook(rt.Metrics.InstanceHook),
		instance.WithTickHook(rt.Metrics.TickHook),
	}
	if opts.Debug {
		procOpts = append(procOpts, instance.WithListener(observability.NewLoggingListener(logger)))
	}

	if opts.RedisAddr != "" {
		store := redisAdapter.New(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, redisAdapter.WithTTL(opts.RedisTTL))
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("error connecting to redis: %w", err)
		}
		rt.Store = store
		rt.closers = append(rt.closers, store.Close)
		procOpts = append(procOpts, instance.WithLocker(redisAdapter.NewLocker(store.Client(), "forge:"), 0))
		logger.Info("using redis snapshot store", "addr", opts.RedisAddr)
	} else {
		if opts.StoreDir != "" {
			rt.Store = file.New(opts.StoreDir)
		} else {
			rt.Store = memory.NewStore()
		}
		procOpts = append(procOpts, instance.WithLocker(memory.NewLocker(), 0))
	}
	mws, err := storeMiddlewares(opts)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Store = middleware.Chain(rt.Store, mws...)
	procOpts = append(procOpts, instance.WithSnapshotStore(rt.Store))
	procOpts = append(procOpts, extra...)

	rt.Processor = instance.NewProcessor(procOpts...)
	return rt, nil
}

func storeMiddlewares(opts RunOptions) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(opts.Redact) > 0 {
		mw, err := middleware.NewRedactionMiddleware(opts.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if opts.StoreKey != "" {
		key, err := hex.DecodeString(opts.StoreKey)
		if err != nil {
			return nil, fmt.Errorf("invalid store key: %w", err)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

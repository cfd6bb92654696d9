package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/forge/pkg/adapters/http"
	"github.com/aretw0/forge/pkg/instance"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultInterval is the tick period of the serve loop.
const DefaultInterval = 100 * time.Millisecond

// Serve loads the definitions, exposes them over HTTP on addr and ticks
// the processor every opts.Interval until ctx is done.
func Serve(ctx context.Context, opts RunOptions, logger *slog.Logger, addr string) error {
	streams := httpAdapter.NewStreamManager(logger)
	rt, err := newRuntime(ctx, opts, logger, instance.WithListener(streams))
	if err != nil {
		return err
	}
	defer rt.Close()

	reg := prometheus.NewRegistry()
	if err := rt.Metrics.Register(reg); err != nil {
		return err
	}
	insts, err := loadInstances(ctx, rt, opts, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: addr,
		Handler: httpAdapter.NewHandler(rt.Processor, rt.Catalog,
			httpAdapter.WithGatherer(reg),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithStreams(streams),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting forge server", "addr", addr, "instances", len(insts))
		serverErrors <- srv.ListenAndServe()
	}()

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ticker.C:
			if rt.Processor.Idle() {
				continue
			}
			if err := rt.Processor.ProcessTick(ctx); err != nil {
				logger.Error("tick failed", "err", err)
			}
		case <-ctx.Done():
			logger.Info("start shutdown")
			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			logger.Info("forge server stopped gracefully")
			return nil
		}
	}
}

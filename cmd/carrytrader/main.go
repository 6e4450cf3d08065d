package main

import (
	"context"
	"flag"
	"os"
	"time"

	"carrytrader/internal/arbitrage"
	"carrytrader/internal/engine"
	"carrytrader/internal/instrument"
	"carrytrader/internal/obs"
	"carrytrader/internal/ops"
	"carrytrader/internal/risk"
	"carrytrader/internal/strategy/carry"
	"carrytrader/internal/underlying"

	"github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"golang.org/x/sync/errgroup"
)

const _shutdownTimeout = 10 * time.Second

func main() {
	ops.LoadDotEnv()

	flags, err := ops.ParseFlags(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logs.Errorf("parse flags, err: %+v", err)
		os.Exit(2)
	}

	cfg, err := ops.Load(flags.ConfigPath)
	if err != nil {
		logs.Errorf("load config, err: %+v", err)
		os.Exit(2)
	}
	flags.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		logs.Errorf("invalid config, err: %+v", err)
		os.Exit(2)
	}

	if cfg.Debug {
		logs.SetDefault(logs.New(logs.LevelDebug))
	}

	if err := run(context.Background(), cfg); err != nil {
		logs.Errorf("run, err: %+v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg ops.Config) error {
	if cfg.Metrics.Pyroscope != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "carrytrader",
			ServerAddress:   cfg.Metrics.Pyroscope,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return errors.Wrap(err, "start pyroscope")
		}
		defer profiler.Stop()
	}

	gw, specsPath, err := newGateway(cfg, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "create gateway")
	}

	catalog, err := instrument.Load(ctx, gw, specsPath, cfg.Engine.RefreshSpecs)
	if err != nil {
		_ = gw.Close()
		return errors.Wrap(err, "load instrument specs")
	}

	metrics := obs.NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		_ = gw.Close()
		return errors.Wrap(err, "register metrics")
	}

	fatal := make(chan error, 1)
	book := underlying.NewBook()
	d, err := engine.New(engine.Config{
		Capacity:      cfg.Engine.Capacity,
		QueueSize:     cfg.Engine.QueueSize,
		SubmitTimeout: cfg.Engine.SubmitTimeout,
	}, engine.Deps{
		Instruments: catalog,
		Gateway:     gw,
		Book:        book,
		Risk:        risk.NewEngine(cfg.Risk),
		Metrics:     metrics,
		OnFatal: func(err error) {
			select {
			case fatal <- err:
			default:
			}
		},
	})
	if err != nil {
		_ = gw.Close()
		return errors.Wrap(err, "create dispatcher")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, egCtx := errgroup.WithContext(runCtx)

	eg.Go(func() error {
		d.Run(egCtx)
		return nil
	})
	eg.Go(func() error {
		if err := gw.Run(egCtx, d.Handlers()); err != nil {
			return errors.Wrap(err, "gateway feed")
		}
		return nil
	})

	refresher := underlying.NewRefresher(underlying.RefresherConfig{
		Every:   cfg.Reference.Every,
		Timeout: cfg.Reference.Timeout,
		Retries: cfg.Reference.Retries,
	}, newReferenceSource(cfg), book, d.Registry().UnderlyingSymbols, d)
	refresher.OnApplied(func(n int) {
		logs.Debugf("underlying quotes refreshed, count: %d", n)
	})

	s, err := carry.New(carry.Config{
		Name:    cfg.Strategy.Name,
		Symbols: cfg.Strategy.Symbols,
		Size:    cfg.Strategy.Size,
		Thresholds: arbitrage.Thresholds{
			Taker:          cfg.Strategy.RateTaker,
			Payer:          cfg.Strategy.RatePayer,
			MaxDerivSpread: cfg.Strategy.MaxDerivSpread,
		},
		BoardEvery: cfg.Strategy.BoardEvery,
	})
	if err != nil {
		shutdown(d, cancel, eg)
		return errors.Wrap(err, "create strategy")
	}
	if err := d.Load(ctx, s); err != nil {
		// A strategy that fails to load leaves the session idle rather than aborting it.
		logs.Errorf("load strategy %s, err: %+v", s.Name(), err)
	} else if _, err := d.Toggle(ctx, map[string]bool{s.Name(): true}); err != nil {
		logs.Errorf("activate strategy %s, err: %+v", s.Name(), err)
	}

	if err := refresher.Refresh(egCtx); err != nil {
		logs.Warnf("initial underlying refresh, err: %+v", err)
	}
	eg.Go(func() error {
		return refresher.Run(egCtx)
	})
	if cfg.Metrics.Addr != "" {
		eg.Go(func() error {
			return obs.Serve(egCtx, cfg.Metrics.Addr, reg)
		})
	}

	logs.Infof("session started, strategy: %s, symbols: %v, timeout: %s", s.Name(), s.Symbols(), cfg.Engine.Timeout)

	var timeout <-chan time.Time
	if cfg.Engine.Timeout > 0 {
		timer := time.NewTimer(cfg.Engine.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-sys.Shutdown():
		logs.Info("interrupted, shutting down")
	case <-timeout:
		logs.Errorf("session timeout after %s, shutting down", cfg.Engine.Timeout)
	case err := <-fatal:
		logs.Errorf("gateway fatal, shutting down, err: %+v", err)
	case <-egCtx.Done():
		logs.Errorf("session stopped, shutting down, err: %+v", context.Cause(egCtx))
	}

	removed := shutdown(d, cancel, eg)
	report(removed, d, metrics)
	return nil
}

// shutdown drains the dispatcher and waits for every session goroutine.
func shutdown(d *engine.Dispatcher, cancel context.CancelFunc, eg *errgroup.Group) []strategyReport {
	ctx, done := context.WithTimeout(context.Background(), _shutdownTimeout)
	defer done()

	removed := d.Shutdown(ctx)
	cancel()
	if err := eg.Wait(); err != nil {
		logs.Warnf("session goroutines stopped with error, err: %+v", err)
	}
	return reports(removed)
}

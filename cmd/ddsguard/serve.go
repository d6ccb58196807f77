package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ddsguard/pkg/cli"
	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/engine"
	"mercator-hq/ddsguard/pkg/evidence/recorder"
	"mercator-hq/ddsguard/pkg/indicators"
	"mercator-hq/ddsguard/pkg/server"
	"mercator-hq/ddsguard/pkg/telemetry/health"
	"mercator-hq/ddsguard/pkg/telemetry/metrics"
)

func newServeCmd(global *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the evaluation HTTP service",
		Long: `Run the HTTP service. Documents are posted to /v1/evaluate; health,
readiness, version and Prometheus metrics are served alongside.

The service stops gracefully on SIGINT or SIGTERM.

Examples:
  ddsguard serve --config config.yaml
  ddsguard serve --listen 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen_address)")
	return cmd
}

func runServe(cmd *cobra.Command, global *globalFlags, listen string) error {
	cfg, logger, err := global.setup(cmd)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.ListenAddress = listen
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	snap, err := loadIndicators(cfg.Engine.IndicatorsPath)
	if err != nil {
		return err
	}
	store := indicators.NewStore(snap, logger)
	if collector != nil {
		store.OnReload(collector.ObserveReload)
		collector.ObserveReload(snap, nil)
	}

	if cfg.Engine.WatchIndicators && cfg.Engine.IndicatorsPath != "" {
		watcher, err := indicators.NewWatcher(cfg.Engine.IndicatorsPath, store, cfg.Engine.WatchDebounce, logger)
		if err != nil {
			return err
		}
		defer watcher.Stop()
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("indicator watcher stopped", "error", err)
			}
		}()
	}

	checker := health.New(0)
	checker.RegisterCheck("indicators", health.IndicatorsCheck(store))

	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithDefaultKind(document.Kind(cfg.Engine.DefaultDocumentType)),
	}
	if collector != nil {
		engineOpts = append(engineOpts, engine.WithObserver(collector))
	}

	if cfg.Evidence.Enabled {
		evidenceStore, err := openStorage(ctx, &cfg.Evidence, logger)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer evidenceStore.Close()

		if p, ok := evidenceStore.(health.Pinger); ok {
			checker.RegisterCheck("evidence_storage", health.StorageCheck(p))
		}

		var recOpts []recorder.Option
		if collector != nil {
			recOpts = append(recOpts, recorder.WithResultHook(collector.RecordEvidence))
		}
		rec := newRecorder(evidenceStore, &cfg.Evidence, logger, recOpts...)
		defer rec.Close()
		engineOpts = append(engineOpts, engine.WithAuditSink(rec))

		if cfg.Evidence.Retention.Schedule != "" {
			pruner := newPruner(evidenceStore, &cfg.Evidence.Retention, logger)
			if err := pruner.Start(ctx); err != nil {
				return fmt.Errorf("failed to start retention scheduler: %w", err)
			}
			defer pruner.Stop()
		}
	}

	eng, err := engine.New(store, engineOpts...)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithHealth(checker),
		server.WithVersion(versionInfo()),
		server.WithLogger(logger),
	}
	if collector != nil {
		opts = append(opts, server.WithMetrics(collector, cfg.Telemetry.Metrics.Path))
	}

	return server.NewServer(&cfg.Server, eng, opts...).Start(ctx)
}

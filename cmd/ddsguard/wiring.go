package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"mercator-hq/ddsguard/pkg/config"
	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/evidence"
	"mercator-hq/ddsguard/pkg/evidence/recorder"
	"mercator-hq/ddsguard/pkg/evidence/retention"
	"mercator-hq/ddsguard/pkg/evidence/storage"
	"mercator-hq/ddsguard/pkg/indicators"
)

// loadIndicators loads the indicator file at path, or the built-in
// defaults when path is empty.
func loadIndicators(path string) (*indicators.Snapshot, error) {
	if path == "" {
		return indicators.DefaultSnapshot(), nil
	}
	snap, err := indicators.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load risk indicators: %w", err)
	}
	return snap, nil
}

// openStorage opens the evidence backend selected by cfg.
func openStorage(ctx context.Context, cfg *config.EvidenceConfig, logger *slog.Logger) (evidence.Storage, error) {
	return storage.Open(ctx, storage.Config{
		Backend: cfg.Backend,
		SQLite: &storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		},
		Postgres: &storage.PostgresConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		},
	}, logger)
}

// newRecorder creates the evidence recorder for store.
func newRecorder(store evidence.Storage, cfg *config.EvidenceConfig, logger *slog.Logger, opts ...recorder.Option) *recorder.Recorder {
	recCfg := recorder.DefaultConfig()
	recCfg.Enabled = cfg.Enabled
	recCfg.AsyncBuffer = cfg.Recorder.AsyncBuffer
	recCfg.WriteTimeout = cfg.Recorder.WriteTimeout
	return recorder.NewRecorder(store, recCfg, append([]recorder.Option{recorder.WithLogger(logger)}, opts...)...)
}

// newPruner creates the retention pruner for store.
func newPruner(store evidence.Storage, cfg *config.RetentionConfig, logger *slog.Logger) *retention.Pruner {
	return retention.NewPruner(store, &retention.Config{
		RetentionDays:       cfg.Days,
		Schedule:            cfg.Schedule,
		MaxRecords:          cfg.MaxRecords,
		ArchiveBeforeDelete: cfg.ArchiveBeforeDelete,
		ArchivePath:         cfg.ArchivePath,
	}, retention.WithLogger(logger))
}

// formatForPath picks the document format from a file extension.
func formatForPath(path string) document.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return document.FormatJSON
	case ".yaml", ".yml":
		return document.FormatYAML
	default:
		return document.FormatAuto
	}
}

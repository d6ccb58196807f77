package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/ddsguard/pkg/evidence"
	"mercator-hq/ddsguard/pkg/evidence/export"
	"mercator-hq/ddsguard/pkg/evidence/query"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain evidence.
	// 0 keeps evidence forever.
	// Default: 365
	RetentionDays int

	// Schedule is a standard five-field cron expression for automatic
	// pruning. Empty disables the scheduler.
	// Default: "0 3 * * *"
	Schedule string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64

	// ArchiveBeforeDelete writes pruned records to a JSON file first.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory for archive files.
	// Default: "data/archives"
	ArchivePath string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 365,
		Schedule:      "0 3 * * *",
		ArchivePath:   "data/archives",
	}
}

// Result summarises one pruning run.
type Result struct {
	ByAge    int64
	ByCount  int64
	Archives []string
}

// Deleted returns the total number of deleted records.
func (r Result) Deleted() int64 {
	return r.ByAge + r.ByCount
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithLogger sets the pruner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pruner) {
		p.logger = logger
	}
}

// WithClock overrides the clock used to compute the age cutoff.
func WithClock(clock func() time.Time) Option {
	return func(p *Pruner) {
		p.clock = clock
	}
}

// Pruner enforces retention policies on evidence records.
type Pruner struct {
	storage   evidence.Storage
	config    *Config
	clock     func() time.Time
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a new retention pruner.
func NewPruner(storage evidence.Storage, config *Config, opts ...Option) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "evidence.retention")
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes records recorded before the retention cutoff, then the
// oldest records beyond MaxRecords. When ArchiveBeforeDelete is set each
// phase first writes the affected records to a JSON archive.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	var result Result

	if p.config.RetentionDays > 0 {
		cutoff := p.clock().UTC().AddDate(0, 0, -p.config.RetentionDays)
		deleted, archive, err := p.pruneBefore(ctx, "age", cutoff)
		if err != nil {
			return result, evidence.NewRetentionError(p.config.RetentionDays, fmt.Errorf("prune by age: %w", err))
		}
		result.ByAge = deleted
		result.Archives = appendNonEmpty(result.Archives, archive)
	}

	if p.config.MaxRecords > 0 {
		deleted, archive, err := p.pruneByCount(ctx)
		if err != nil {
			return result, evidence.NewRetentionError(p.config.RetentionDays, fmt.Errorf("prune by count: %w", err))
		}
		result.ByCount = deleted
		result.Archives = appendNonEmpty(result.Archives, archive)
	}

	if result.Deleted() == 0 {
		p.logger.Debug("no records pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("evidence pruning completed",
			"deleted_by_age", result.ByAge,
			"deleted_by_count", result.ByCount,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return result, nil
}

// pruneByCount finds the newest record beyond MaxRecords and deletes it and
// everything recorded before it. Records sharing its timestamp go with it.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, string, error) {
	count, err := p.storage.Count(ctx, &evidence.Query{})
	if err != nil {
		return 0, "", fmt.Errorf("count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		p.logger.Debug("record count within limit", "current", count, "max", p.config.MaxRecords)
		return 0, "", nil
	}

	boundary, err := p.storage.Query(ctx, &evidence.Query{
		SortBy:    "recorded_at",
		SortOrder: "desc",
		Offset:    int(p.config.MaxRecords),
		Limit:     1,
	})
	if err != nil {
		return 0, "", fmt.Errorf("find cutoff record: %w", err)
	}
	if len(boundary) == 0 {
		return 0, "", nil
	}

	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"cutoff_time", boundary[0].RecordedAt,
	)
	return p.pruneBefore(ctx, "count", boundary[0].RecordedAt)
}

// pruneBefore archives (if configured) and deletes every record with
// RecordedAt <= cutoff.
func (p *Pruner) pruneBefore(ctx context.Context, phase string, cutoff time.Time) (int64, string, error) {
	q := &evidence.Query{EndTime: &cutoff}

	var archive string
	if p.config.ArchiveBeforeDelete {
		var err error
		archive, err = p.archive(ctx, phase, q)
		if err != nil {
			return 0, "", err
		}
	}

	deleted, err := p.storage.Delete(ctx, q)
	if err != nil {
		return 0, archive, err
	}
	p.logger.Debug("pruned records", "phase", phase, "cutoff_time", cutoff, "deleted_count", deleted)
	return deleted, archive, nil
}

// archive writes every record matching q to a new JSON file and returns its
// path, or "" when nothing matched.
func (p *Pruner) archive(ctx context.Context, phase string, q *evidence.Query) (string, error) {
	var records []*evidence.Record
	page := *q
	page.SortBy, page.SortOrder, page.Limit = "recorded_at", "asc", query.MaxLimit
	for {
		batch, err := p.storage.Query(ctx, &page)
		if err != nil {
			return "", fmt.Errorf("query records for archiving: %w", err)
		}
		records = append(records, batch...)
		if len(batch) < page.Limit {
			break
		}
		page.Offset += len(batch)
	}
	if len(records) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	name := fmt.Sprintf("evidence-%s-%s.json", phase, p.clock().UTC().Format("20060102T150405.000000000Z"))
	path := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		return "", err
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("sync archive file: %w", err)
	}

	p.logger.Info("evidence archived", "archive_file", path, "record_count", len(records))
	return path, nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}

func appendNonEmpty(list []string, s string) []string {
	if s == "" {
		return list
	}
	return append(list, s)
}

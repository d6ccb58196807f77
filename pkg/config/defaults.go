package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultWatchDebounce = 250 * time.Millisecond

	// Evidence defaults
	DefaultEvidenceEnabled              = true
	DefaultEvidenceBackend              = "sqlite"
	DefaultEvidenceSQLitePath           = "data/evidence.db"
	DefaultEvidenceSQLiteDriver         = "sqlite3"
	DefaultEvidenceSQLiteMaxOpenConns   = 10
	DefaultEvidenceSQLiteMaxIdleConns   = 5
	DefaultEvidenceSQLiteWALMode        = true
	DefaultEvidenceSQLiteBusyTimeout    = 5 * time.Second
	DefaultEvidencePostgresMaxConns     = int32(10)
	DefaultEvidenceRecorderAsyncBuffer  = 1000
	DefaultEvidenceRecorderWriteTimeout = 5 * time.Second
	DefaultEvidenceRetentionDays        = 365
	DefaultEvidenceRetentionSchedule    = "0 3 * * *"
	DefaultEvidenceRetentionArchivePath = "data/archives"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(10 << 20)

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultPrometheusPath   = "/metrics"
	DefaultMetricsNamespace = "ddsguard"
)

// Defaults returns a configuration with every field at its default. Loaders
// decode YAML on top of it, so fields whose zero value is meaningful (true
// booleans, retention days) keep their default unless the file sets them.
func Defaults() *Config {
	cfg := &Config{
		Evidence: EvidenceConfig{
			Enabled:   DefaultEvidenceEnabled,
			SQLite:    SQLiteConfig{WALMode: DefaultEvidenceSQLiteWALMode},
			Retention: RetentionConfig{Days: DefaultEvidenceRetentionDays},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any non-boolean fields that have zero
// values. It is idempotent.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.WatchDebounce == 0 {
		cfg.Engine.WatchDebounce = DefaultWatchDebounce
	}

	// Evidence defaults
	if cfg.Evidence.Backend == "" {
		cfg.Evidence.Backend = DefaultEvidenceBackend
	}
	if cfg.Evidence.SQLite.Path == "" {
		cfg.Evidence.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if cfg.Evidence.SQLite.Driver == "" {
		cfg.Evidence.SQLite.Driver = DefaultEvidenceSQLiteDriver
	}
	if cfg.Evidence.SQLite.MaxOpenConns == 0 {
		cfg.Evidence.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if cfg.Evidence.SQLite.MaxIdleConns == 0 {
		cfg.Evidence.SQLite.MaxIdleConns = DefaultEvidenceSQLiteMaxIdleConns
	}
	if cfg.Evidence.SQLite.BusyTimeout == 0 {
		cfg.Evidence.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if cfg.Evidence.Postgres.MaxConns == 0 {
		cfg.Evidence.Postgres.MaxConns = DefaultEvidencePostgresMaxConns
	}

	// Recorder defaults
	if cfg.Evidence.Recorder.AsyncBuffer == 0 {
		cfg.Evidence.Recorder.AsyncBuffer = DefaultEvidenceRecorderAsyncBuffer
	}
	if cfg.Evidence.Recorder.WriteTimeout == 0 {
		cfg.Evidence.Recorder.WriteTimeout = DefaultEvidenceRecorderWriteTimeout
	}

	// Retention defaults. Days is set in Defaults because 0 is meaningful.
	if cfg.Evidence.Retention.Schedule == "" {
		cfg.Evidence.Retention.Schedule = DefaultEvidenceRetentionSchedule
	}
	if cfg.Evidence.Retention.ArchivePath == "" {
		cfg.Evidence.Retention.ArchivePath = DefaultEvidenceRetentionArchivePath
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}

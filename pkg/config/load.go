package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "DDSGUARD_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Unset fields keep their defaults. The result is validated but not modified
// by environment variables; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides named DDSGUARD_SECTION_FIELD (for example
// DDSGUARD_SERVER_LISTEN_ADDRESS). Environment variables take precedence over
// the file. An empty path loads defaults only.
//
// The loading sequence is:
// 1. Load YAML from file (or start from defaults)
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if errs := applyEnvOverrides(cfg, os.LookupEnv); len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment override: %w", ValidationError{Errors: errs})
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// envOverrides collects parse failures while applying overrides.
type envOverrides struct {
	lookup lookupFunc
	errs   []FieldError
}

func (e *envOverrides) get(name string) (string, bool) {
	val, ok := e.lookup(EnvPrefix + name)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func (e *envOverrides) fail(name, val string, err error) {
	e.errs = append(e.errs, FieldError{
		Field:   EnvPrefix + name,
		Message: fmt.Sprintf("cannot parse %q: %v", val, err),
	})
}

func (e *envOverrides) str(name string, dst *string) {
	if val, ok := e.get(name); ok {
		*dst = val
	}
}

func (e *envOverrides) flag(name string, dst *bool) {
	if val, ok := e.get(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			e.fail(name, val, err)
			return
		}
		*dst = b
	}
}

func (e *envOverrides) num(name string, dst *int) {
	if val, ok := e.get(name); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			e.fail(name, val, err)
			return
		}
		*dst = i
	}
}

func (e *envOverrides) num64(name string, dst *int64) {
	if val, ok := e.get(name); ok {
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			e.fail(name, val, err)
			return
		}
		*dst = i
	}
}

func (e *envOverrides) num32(name string, dst *int32) {
	if val, ok := e.get(name); ok {
		i, err := strconv.ParseInt(val, 10, 32)
		if err != nil {
			e.fail(name, val, err)
			return
		}
		*dst = int32(i)
	}
}

func (e *envOverrides) duration(name string, dst *time.Duration) {
	if val, ok := e.get(name); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			e.fail(name, val, err)
			return
		}
		*dst = d
	}
}

// applyEnvOverrides applies DDSGUARD_* variables to cfg and returns the
// variables whose values could not be parsed.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) []FieldError {
	env := &envOverrides{lookup: lookup}

	// Engine overrides
	env.str("ENGINE_INDICATORS_PATH", &cfg.Engine.IndicatorsPath)
	env.flag("ENGINE_WATCH_INDICATORS", &cfg.Engine.WatchIndicators)
	env.duration("ENGINE_WATCH_DEBOUNCE", &cfg.Engine.WatchDebounce)
	env.str("ENGINE_DEFAULT_DOCUMENT_TYPE", &cfg.Engine.DefaultDocumentType)

	// Evidence overrides
	env.flag("EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	env.str("EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	env.str("EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	env.str("EVIDENCE_SQLITE_DRIVER", &cfg.Evidence.SQLite.Driver)
	env.num("EVIDENCE_SQLITE_MAX_OPEN_CONNS", &cfg.Evidence.SQLite.MaxOpenConns)
	env.num("EVIDENCE_SQLITE_MAX_IDLE_CONNS", &cfg.Evidence.SQLite.MaxIdleConns)
	env.flag("EVIDENCE_SQLITE_WAL_MODE", &cfg.Evidence.SQLite.WALMode)
	env.duration("EVIDENCE_SQLITE_BUSY_TIMEOUT", &cfg.Evidence.SQLite.BusyTimeout)
	env.str("EVIDENCE_POSTGRES_DSN", &cfg.Evidence.Postgres.DSN)
	env.num32("EVIDENCE_POSTGRES_MAX_CONNS", &cfg.Evidence.Postgres.MaxConns)
	env.num("EVIDENCE_RECORDER_ASYNC_BUFFER", &cfg.Evidence.Recorder.AsyncBuffer)
	env.duration("EVIDENCE_RECORDER_WRITE_TIMEOUT", &cfg.Evidence.Recorder.WriteTimeout)
	env.num("EVIDENCE_RETENTION_DAYS", &cfg.Evidence.Retention.Days)
	env.str("EVIDENCE_RETENTION_SCHEDULE", &cfg.Evidence.Retention.Schedule)
	env.num64("EVIDENCE_RETENTION_MAX_RECORDS", &cfg.Evidence.Retention.MaxRecords)
	env.flag("EVIDENCE_RETENTION_ARCHIVE_BEFORE_DELETE", &cfg.Evidence.Retention.ArchiveBeforeDelete)
	env.str("EVIDENCE_RETENTION_ARCHIVE_PATH", &cfg.Evidence.Retention.ArchivePath)

	// Server overrides
	env.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	env.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	env.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	env.duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	env.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	env.num64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	// Telemetry overrides
	env.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	env.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	env.flag("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	env.flag("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	env.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	env.str("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	env.str("TELEMETRY_METRICS_SUBSYSTEM", &cfg.Telemetry.Metrics.Subsystem)

	return env.errs
}

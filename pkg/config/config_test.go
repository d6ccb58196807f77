package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ddsguard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
	if !cfg.Evidence.Enabled || !cfg.Evidence.SQLite.WALMode || !cfg.Telemetry.Metrics.Enabled {
		t.Error("boolean defaults not applied")
	}
	if cfg.Evidence.Backend != "sqlite" || cfg.Evidence.SQLite.Driver != "sqlite3" {
		t.Errorf("evidence = %+v", cfg.Evidence)
	}
	if cfg.Evidence.Retention.Days != 365 || cfg.Evidence.Retention.Schedule != "0 3 * * *" {
		t.Errorf("retention = %+v", cfg.Evidence.Retention)
	}
	if cfg.Server.MaxBodyBytes != 10<<20 || cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Telemetry.Metrics.Namespace != "ddsguard" {
		t.Errorf("metrics namespace = %q", cfg.Telemetry.Metrics.Namespace)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  indicators_path: "./indicators.yaml"
  watch_indicators: true
  watch_debounce: "1s"
  default_document_type: supply_chain

evidence:
  backend: postgres
  postgres:
    dsn: "postgres://localhost/ddsguard"
  recorder:
    async_buffer: 0
  retention:
    days: 0
    max_records: 5000

server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "60s"

telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Engine.IndicatorsPath != "./indicators.yaml" || !cfg.Engine.WatchIndicators || cfg.Engine.WatchDebounce != time.Second {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Engine.DefaultDocumentType != "supply_chain" {
		t.Errorf("default document type = %q", cfg.Engine.DefaultDocumentType)
	}
	if cfg.Evidence.Backend != "postgres" || cfg.Evidence.Postgres.MaxConns != 10 {
		t.Errorf("evidence = %+v", cfg.Evidence)
	}
	if !cfg.Evidence.Enabled {
		t.Error("evidence.enabled must keep its default when omitted")
	}
	if cfg.Evidence.Recorder.AsyncBuffer != DefaultEvidenceRecorderAsyncBuffer {
		t.Errorf("async_buffer = %d", cfg.Evidence.Recorder.AsyncBuffer)
	}
	if cfg.Evidence.Retention.Days != 0 || cfg.Evidence.Retention.MaxRecords != 5000 {
		t.Errorf("retention = %+v, want explicit 0 days kept", cfg.Evidence.Retention)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9090" || cfg.Server.ReadTimeout != time.Minute {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("write_timeout = %v, want default", cfg.Server.WriteTimeout)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics.enabled: false was not honoured")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "malformed yaml", content: "server: [", want: "failed to parse"},
		{name: "bad backend", content: "evidence:\n  backend: s3\n", want: "evidence.backend"},
		{name: "postgres without dsn", content: "evidence:\n  backend: postgres\n", want: "evidence.postgres.dsn"},
		{name: "bad schedule", content: "evidence:\n  retention:\n    schedule: daily\n", want: "evidence.retention.schedule"},
		{name: "bad listen address", content: "server:\n  listen_address: localhost\n", want: "server.listen_address"},
		{name: "bad log level", content: "telemetry:\n  logging:\n    level: trace\n", want: "telemetry.logging.level"},
		{name: "watch without path", content: "engine:\n  watch_indicators: true\n", want: "engine.watch_indicators"},
		{name: "bad document type", content: "engine:\n  default_document_type: invoice\n", want: "engine.default_document_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file must fail")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Evidence.Backend = "postgres"
	cfg.Evidence.Postgres.MaxConns = 0
	cfg.Server.MaxBodyBytes = -1
	cfg.Telemetry.Logging.Format = "xml"

	var verr ValidationError
	if err := Validate(cfg); !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}
	fields := make([]string, len(verr.Errors))
	for i, fe := range verr.Errors {
		fields[i] = fe.Field
	}
	want := []string{"evidence.postgres.dsn", "evidence.postgres.max_conns", "server.max_body_bytes", "telemetry.logging.format"}
	if strings.Join(fields, ",") != strings.Join(want, ",") {
		t.Errorf("fields = %v, want %v", fields, want)
	}
}

func TestValidate_DisabledEvidenceSkipsBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Evidence.Enabled = false
	cfg.Evidence.Backend = "nonsense"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"DDSGUARD_SERVER_LISTEN_ADDRESS":           "0.0.0.0:8443",
		"DDSGUARD_SERVER_MAX_BODY_BYTES":           "2048",
		"DDSGUARD_EVIDENCE_ENABLED":                "false",
		"DDSGUARD_EVIDENCE_POSTGRES_MAX_CONNS":     "4",
		"DDSGUARD_EVIDENCE_RECORDER_WRITE_TIMEOUT": "2s",
		"DDSGUARD_TELEMETRY_LOGGING_LEVEL":         "debug",
		"DDSGUARD_ENGINE_INDICATORS_PATH":          "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Defaults()
	if errs := applyEnvOverrides(cfg, lookup); len(errs) != 0 {
		t.Fatalf("errors = %v", errs)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:8443" || cfg.Server.MaxBodyBytes != 2048 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Evidence.Enabled || cfg.Evidence.Postgres.MaxConns != 4 || cfg.Evidence.Recorder.WriteTimeout != 2*time.Second {
		t.Errorf("evidence = %+v", cfg.Evidence)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Engine.IndicatorsPath != "" {
		t.Error("empty variable must not override")
	}

	bad := map[string]string{
		"DDSGUARD_EVIDENCE_ENABLED":    "maybe",
		"DDSGUARD_SERVER_READ_TIMEOUT": "soon",
	}
	errs := applyEnvOverrides(Defaults(), func(key string) (string, bool) {
		v, ok := bad[key]
		return v, ok
	})
	if len(errs) != 2 || errs[0].Field != "DDSGUARD_EVIDENCE_ENABLED" {
		t.Errorf("errors = %v", errs)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:7000\"\n")
	t.Setenv("DDSGUARD_SERVER_LISTEN_ADDRESS", "127.0.0.1:7001")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:7001" {
		t.Errorf("listen_address = %q, want env value", cfg.Server.ListenAddress)
	}

	t.Setenv("DDSGUARD_TELEMETRY_LOGGING_LEVEL", "loud")
	if _, err := LoadConfigWithEnvOverrides(""); err == nil {
		t.Error("invalid override must fail validation")
	}
}

func TestSingleton(t *testing.T) {
	SetConfig(nil)
	t.Cleanup(func() { SetConfig(nil) })

	if GetConfig() != nil {
		t.Fatal("GetConfig() before Initialize must be nil")
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("MustGetConfig() must panic before Initialize")
			}
		}()
		MustGetConfig()
	}()

	path := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:7100\"\n")
	cfg, err := Initialize(path)
	if err != nil {
		t.Fatal(err)
	}
	if MustGetConfig() != cfg || cfg.Server.ListenAddress != "127.0.0.1:7100" {
		t.Errorf("config = %+v", GetConfig().Server)
	}

	if _, err := Initialize(writeConfig(t, "server: [")); err == nil {
		t.Error("Initialize() with broken file must fail")
	}
	if GetConfig() != cfg {
		t.Error("failed Initialize replaced the configuration")
	}

	debug := func(c *Config) { c.Telemetry.Logging.Level = "debug" }
	cfg, err = Initialize(path, debug)
	if err != nil {
		t.Fatal(err)
	}
	if GetConfig().Telemetry.Logging.Level != "debug" {
		t.Errorf("override not applied: %+v", GetConfig().Telemetry.Logging)
	}

	loud := func(c *Config) { c.Telemetry.Logging.Level = "loud" }
	if _, err := Initialize(path, loud); err == nil {
		t.Error("invalid override must fail validation")
	}
	if GetConfig() != cfg {
		t.Error("rejected override replaced the configuration")
	}

	replacement := Defaults()
	SetConfig(replacement)
	if GetConfig() != replacement {
		t.Error("SetConfig() not applied")
	}
}

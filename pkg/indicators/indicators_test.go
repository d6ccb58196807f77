package indicators

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const validYAML = `
version: "test"
required_fields:
  due_diligence_statement: [reference_number, valid_from]
  supplier: [id, country]
high_risk_countries: [br, " id "]
high_risk_commodities: [Palm_Oil]
transparency_indicators: [geolocation]
weights: {geographic: 0.5, transparency: 0.3, commodity: 0.2}
min_traceability_depth: 3
mitigation_measure_types: [independent_audit]
`

func TestDefault_IsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
	s := DefaultSnapshot()
	if s.Version == "" || len(s.Version) != versionLength {
		t.Errorf("Version = %q", s.Version)
	}
	if !s.IsHighRiskCountry("br") {
		t.Error("BR should be high risk in the built-in configuration")
	}
}

func TestParse_AppliesDefaultsAndNormalises(t *testing.T) {
	s, err := Parse([]byte(validYAML), "test.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg := s.Config
	if cfg.RenewalLeadDays != 30 {
		t.Errorf("RenewalLeadDays = %d, want default 30", cfg.RenewalLeadDays)
	}
	if cfg.Thresholds != DefaultThresholds() {
		t.Errorf("Thresholds = %+v, want defaults", cfg.Thresholds)
	}
	if cfg.FallbackRiskLevel != "high" || len(cfg.RiskLevels) != 2 {
		t.Errorf("risk levels not defaulted: %+v / %q", cfg.RiskLevels, cfg.FallbackRiskLevel)
	}
	if !s.IsHighRiskCountry("BR") || !s.IsHighRiskCountry("ID") {
		t.Error("country codes should be normalised to upper case")
	}
	if !s.IsHighRiskCommodity("palm_oil") {
		t.Error("commodities should be normalised to lower case")
	}
	if s.IsHighRiskCountry("FR") {
		t.Error("FR is not in the high risk set")
	}
	if !s.IsMitigationType(" Independent_Audit ") {
		t.Error("mitigation types should match case-insensitively")
	}
	if s.Source != "test.yaml" {
		t.Errorf("Source = %q", s.Source)
	}
	if got := s.RiskLevel(0.85); got != "low" {
		t.Errorf("RiskLevel(0.85) = %q", got)
	}
	if got := s.RiskLevel(0.1); got != "high" {
		t.Errorf("RiskLevel(0.1) = %q", got)
	}
}

func TestParse_VersionTracksContent(t *testing.T) {
	a, err := Parse([]byte(validYAML), "a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse([]byte(validYAML), "b")
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse([]byte(validYAML+"\nrenewal_lead_days: 10\n"), "c")
	if err != nil {
		t.Fatal(err)
	}
	if a.Version != b.Version {
		t.Error("same content should produce the same version")
	}
	if a.Version == c.Version {
		t.Error("different content should produce a different version")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "weights do not sum to one",
			mutate:    func(c *Config) { c.Weights.Commodity = 0.3 },
			wantField: "weights",
		},
		{
			name:      "negative weight",
			mutate:    func(c *Config) { c.Weights = Weights{Geographic: 1.2, Transparency: -0.2, Commodity: 0} },
			wantField: "weights.geographic",
		},
		{
			name:      "empty statement required fields",
			mutate:    func(c *Config) { c.RequiredFields[DocumentStatement] = nil },
			wantField: "required_fields.due_diligence_statement",
		},
		{
			name:      "missing supplier required fields",
			mutate:    func(c *Config) { delete(c.RequiredFields, DocumentSupplier) },
			wantField: "required_fields.supplier",
		},
		{
			name:      "empty high risk countries",
			mutate:    func(c *Config) { c.HighRiskCountries = []string{} },
			wantField: "high_risk_countries",
		},
		{
			name:      "blank mitigation type",
			mutate:    func(c *Config) { c.MitigationMeasureTypes = []string{"audit", " "} },
			wantField: "mitigation_measure_types[1]",
		},
		{
			name:      "bands not descending",
			mutate:    func(c *Config) { c.RiskLevels[1].MinScore = 0.9 },
			wantField: "risk_levels[1].min_score",
		},
		{
			name:      "threshold out of range",
			mutate:    func(c *Config) { c.Thresholds.MitigationCoverage = 1.5 },
			wantField: "thresholds.mitigation_coverage",
		},
		{
			name:      "negative depth",
			mutate:    func(c *Config) { c.MinTraceabilityDepth = -1 },
			wantField: "min_traceability_depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for %q, got %v", tt.wantField, verr.Errors)
			}
		})
	}
}

func TestParse_MissingListsFailFast(t *testing.T) {
	_, err := Parse([]byte(`weights: {geographic: 1, transparency: 0, commodity: 0}`), "partial")
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) < 5 {
		t.Errorf("expected every missing list to be reported, got %d errors", len(verr.Errors))
	}
	if !strings.Contains(err.Error(), "high_risk_countries") {
		t.Errorf("error message missing field: %v", err)
	}
}

func TestStore_ReloadKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "indicators.yaml")
	writeFile(t, path, validYAML)

	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	store := NewStore(initial, nil)

	var attempts, failures int
	store.OnReload(func(s *Snapshot, err error) {
		attempts++
		if err != nil {
			failures++
		}
	})

	// A snapshot held by an in-flight evaluation is never mutated.
	held := store.Current()

	writeFile(t, path, strings.Replace(validYAML, "min_traceability_depth: 3", "min_traceability_depth: 4", 1))
	next, err := store.Reload(path)
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if store.Current() != next || next.Config.MinTraceabilityDepth != 4 {
		t.Errorf("reload did not install the new snapshot")
	}
	if held.Config.MinTraceabilityDepth != 3 {
		t.Errorf("held snapshot changed: depth = %d", held.Config.MinTraceabilityDepth)
	}

	writeFile(t, path, strings.Replace(validYAML, "commodity: 0.2", "commodity: 0.9", 1))
	if _, err := store.Reload(path); err == nil {
		t.Fatal("expected reload of invalid weights to fail")
	}
	if store.Current() != next {
		t.Error("failed reload replaced the current snapshot")
	}
	if attempts != 2 || failures != 1 {
		t.Errorf("hooks saw %d attempts / %d failures, want 2 / 1", attempts, failures)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "indicators.yaml")
	writeFile(t, path, validYAML)

	initial, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(initial, nil)

	var reloads atomic.Int32
	store.OnReload(func(*Snapshot, error) { reloads.Add(1) })

	w, err := NewWatcher(path, store, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx) }()
	defer w.Stop()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, strings.Replace(validYAML, "min_traceability_depth: 3", "min_traceability_depth: 5", 1))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if store.Current().Config.MinTraceabilityDepth == 5 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("store was not reloaded, reload attempts = %d", reloads.Load())
}

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("callback ran %d times, want 1", n)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("callback ran %d times after Stop", n)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/ddsguard/pkg/cli"
)

const statement = `{
  "due_diligence_statement": {
    "reference_number": "DDS-2025-0001",
    "verification_number": "VN-88231",
    "valid_from": "2025-01-01",
    "valid_until": "2025-06-01",
    "information_provider_gln": "4012345000009",
    "products": [{
      "gtin": "09506000149301",
      "batch_number": "L1",
      "serial_number": "S1",
      "digital_link": "https://id.example.com/01/09506000149301/10/L1"
    }]
  },
  "risk_mitigation": [{"type": "independent_audit", "description": "annual audit"}]
}`

type result struct {
	code   int
	stdout string
	stderr string
}

// testEnv holds a configuration pointing at a private evidence store.
type testEnv struct {
	t      *testing.T
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := `
evidence:
  enabled: true
  backend: sqlite
  sqlite:
    path: ` + filepath.Join(dir, "evidence.db") + `
    driver: sqlite
  recorder:
    async_buffer: 0
  retention:
    days: 365
    max_records: 10
    archive_path: ` + filepath.Join(dir, "archives") + `
telemetry:
  logging:
    level: error
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return &testEnv{t: t, dir: dir, config: path}
}

func (e *testEnv) write(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		e.t.Fatal(err)
	}
	return path
}

func (e *testEnv) run(args ...string) result {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", e.config}, args...), strings.NewReader(""), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestEvaluate(t *testing.T) {
	env := newTestEnv(t)
	input := env.write("statement.json", statement)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{
			name:     "compliant",
			args:     []string{"evaluate", "-i", input, "--now", "2025-03-01"},
			wantCode: cli.ExitOK,
			wantOut:  "COMPLIANT  due_diligence_statement DDS-2025-0001",
		},
		{
			name:     "expired",
			args:     []string{"evaluate", "-i", input, "--now", "2025-07-01"},
			wantCode: cli.ExitNonCompliant,
			wantOut:  "expired_statement",
		},
		{
			name:     "json output",
			args:     []string{"evaluate", "-i", input, "--now", "2025-03-01", "--format", "json"},
			wantCode: cli.ExitOK,
			wantOut:  `"compliant": true`,
		},
		{
			name:     "missing input file",
			args:     []string{"evaluate", "-i", filepath.Join(env.dir, "missing.json")},
			wantCode: cli.ExitError,
		},
		{
			name:     "invalid now",
			args:     []string{"evaluate", "-i", input, "--now", "yesterday"},
			wantCode: cli.ExitError,
		},
		{
			name:     "unsupported format",
			args:     []string{"evaluate", "-i", input, "--format", "xml"},
			wantCode: cli.ExitError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.run(tt.args...)
			if res.code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d\nstdout: %s\nstderr: %s", res.code, tt.wantCode, res.stdout, res.stderr)
			}
			if !strings.Contains(res.stdout, tt.wantOut) {
				t.Errorf("stdout = %q, want it to contain %q", res.stdout, tt.wantOut)
			}
			if tt.wantCode == cli.ExitError && !strings.Contains(res.stderr, "Error:") {
				t.Errorf("stderr = %q, want an error message", res.stderr)
			}
		})
	}
}

func TestEvaluateStdin(t *testing.T) {
	env := newTestEnv(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", env.config, "evaluate", "-i", "-", "--now", "2025-03-01"},
		strings.NewReader(statement), &stdout, &stderr)
	if code != cli.ExitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
}

func TestRecordAndQuery(t *testing.T) {
	env := newTestEnv(t)
	input := env.write("statement.json", statement)

	if res := env.run("evaluate", "-i", input, "--now", "2025-03-01", "--record"); res.code != cli.ExitOK {
		t.Fatalf("evaluate exit code = %d, stderr: %s", res.code, res.stderr)
	}
	if res := env.run("evaluate", "-i", input, "--now", "2025-07-01", "--record"); res.code != cli.ExitNonCompliant {
		t.Fatalf("evaluate exit code = %d, stderr: %s", res.code, res.stderr)
	}

	res := env.run("evidence", "query", "--format", "json", "--verify")
	if res.code != cli.ExitOK {
		t.Fatalf("query exit code = %d, stderr: %s", res.code, res.stderr)
	}
	var records []struct {
		DocumentID string   `json:"document_id"`
		Decision   string   `json:"decision"`
		IssueTypes []string `json:"issue_types"`
		Context    map[string]string
	}
	if err := json.Unmarshal([]byte(res.stdout), &records); err != nil {
		t.Fatalf("query output is not a JSON array: %v\n%s", err, res.stdout)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.DocumentID != "DDS-2025-0001" || r.Context["source"] != "cli" {
			t.Errorf("record = %+v", r)
		}
	}

	res = env.run("evidence", "query", "--decision", "reject", "--format", "csv")
	if res.code != cli.ExitOK {
		t.Fatalf("query exit code = %d, stderr: %s", res.code, res.stderr)
	}
	rows, err := csv.NewReader(strings.NewReader(res.stdout)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "id" || rows[1][3] != "reject" {
		t.Errorf("csv rows = %v", rows)
	}

	res = env.run("evidence", "query", "--document-id", "DDS-2025-0001")
	if res.code != cli.ExitOK || !strings.Contains(res.stdout, "DECISION") || strings.Count(res.stdout, "DDS-2025-0001") != 2 {
		t.Errorf("text query = %d %q", res.code, res.stdout)
	}

	res = env.run("evidence", "query", "--document-id", "none")
	if !strings.Contains(res.stdout, "No records found.") {
		t.Errorf("empty query = %q", res.stdout)
	}

	out := filepath.Join(env.dir, "export.json")
	if res := env.run("evidence", "query", "--format", "json", "-o", out); res.code != cli.ExitOK {
		t.Fatalf("export exit code = %d, stderr: %s", res.code, res.stderr)
	}
	if data, err := os.ReadFile(out); err != nil || !bytes.Contains(data, []byte("DDS-2025-0001")) {
		t.Errorf("export file = %q, %v", data, err)
	}

	if res := env.run("evidence", "query", "--since", "2025-13-01"); res.code != cli.ExitError {
		t.Errorf("invalid --since exit code = %d", res.code)
	}

	res = env.run("evidence", "prune")
	if res.code != cli.ExitOK || !strings.Contains(res.stdout, "Deleted 0 records") {
		t.Errorf("prune = %d %q %q", res.code, res.stdout, res.stderr)
	}
}

func TestIndicators(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("indicators", "default")
	if res.code != cli.ExitOK {
		t.Fatalf("default exit code = %d, stderr: %s", res.code, res.stderr)
	}
	good := env.write("indicators.yaml", res.stdout)

	res = env.run("indicators", "validate", good)
	if res.code != cli.ExitOK || !strings.Contains(res.stdout, "is valid") {
		t.Errorf("validate default = %d %q", res.code, res.stdout)
	}

	bad := env.write("bad.yaml", "weights:\n  geographic: 0.9\n  transparency: 0.9\n  commodity: 0.9\n")
	res = env.run("indicators", "validate", bad)
	if res.code != cli.ExitError {
		t.Errorf("validate bad exit code = %d", res.code)
	}
	if !strings.Contains(res.stdout, "weights: must sum to 1.0") {
		t.Errorf("validate bad stdout = %q", res.stdout)
	}
	if res.stderr != "" {
		t.Errorf("validation failures are reported on stdout only, stderr = %q", res.stderr)
	}

	input := env.write("statement.json", statement)
	res = env.run("evaluate", "-i", input, "--now", "2025-03-01", "--indicators", good)
	if res.code != cli.ExitOK {
		t.Errorf("evaluate with exported indicators = %d %q", res.code, res.stderr)
	}
	res = env.run("evaluate", "-i", input, "--indicators", bad)
	if res.code != cli.ExitError {
		t.Errorf("evaluate with invalid indicators = %d", res.code)
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	res := env.run("version")
	if res.code != cli.ExitOK || !strings.Contains(res.stdout, Version) {
		t.Errorf("version = %d %q", res.code, res.stdout)
	}

	res = env.run("version", "--format", "json")
	var info map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &info); err != nil {
		t.Fatalf("version json: %v\n%s", err, res.stdout)
	}
	if info["version"] != Version {
		t.Errorf("version = %v", info)
	}
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	env.config = env.write("broken.yaml", "evidence:\n  backend: mongodb\n")
	input := env.write("statement.json", statement)

	res := env.run("evaluate", "-i", input)
	if res.code != cli.ExitError || !strings.Contains(res.stderr, "evidence.backend") {
		t.Errorf("invalid config = %d %q", res.code, res.stderr)
	}
}

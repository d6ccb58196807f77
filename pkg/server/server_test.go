package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ddsguard/pkg/config"
	"mercator-hq/ddsguard/pkg/engine"
	"mercator-hq/ddsguard/pkg/indicators"
	"mercator-hq/ddsguard/pkg/telemetry/health"
	"mercator-hq/ddsguard/pkg/telemetry/metrics"
)

const validStatement = `{
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

const validStatementYAML = `
due_diligence_statement:
  reference_number: DDS-2025-0002
  verification_number: VN-1
  valid_from: "2025-01-01"
  valid_until: "2025-06-01"
  information_provider_gln: "4012345000009"
  products:
    - gtin: "09506000149301"
      batch_number: L1
      serial_number: S1
      digital_link: https://id.example.com/01/09506000149301
risk_mitigation:
  - type: independent_audit
`

type sink struct {
	decisions []*engine.Decision
}

func (s *sink) Record(_ context.Context, d *engine.Decision) error {
	s.decisions = append(s.decisions, d)
	return nil
}

func newTestServer(t *testing.T, cfg *config.ServerConfig, opts ...Option) (*Server, *sink) {
	t.Helper()
	rec := &sink{}
	eng, err := engine.New(indicators.NewStore(indicators.DefaultSnapshot(), nil), engine.WithAuditSink(rec))
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(cfg, eng, opts...), rec
}

func TestHandleEvaluate(t *testing.T) {
	tests := []struct {
		name          string
		target        string
		contentType   string
		body          string
		wantCode      int
		wantCompliant bool
		wantIssue     string
		wantError     string
	}{
		{
			name:          "compliant statement",
			target:        "/v1/evaluate?now=2025-03-01",
			contentType:   "application/json",
			body:          validStatement,
			wantCode:      http.StatusOK,
			wantCompliant: true,
		},
		{
			name:        "expired statement is still 200",
			target:      "/v1/evaluate?now=2025-07-01",
			contentType: "application/json; charset=utf-8",
			body:        validStatement,
			wantCode:    http.StatusOK,
			wantIssue:   engine.IssueExpiredStatement,
		},
		{
			name:          "yaml body",
			target:        "/v1/evaluate?now=2025-03-01T12:00:00Z",
			contentType:   "application/yaml",
			body:          validStatementYAML,
			wantCode:      http.StatusOK,
			wantCompliant: true,
		},
		{
			name:      "unsupported shape",
			target:    "/v1/evaluate",
			body:      `{"invoice": {}}`,
			wantCode:  http.StatusOK,
			wantIssue: engine.IssueUnsupportedDocument,
		},
		{
			name:        "malformed body",
			target:      "/v1/evaluate",
			contentType: "application/json",
			body:        `{"due_diligence_statement": `,
			wantCode:    http.StatusBadRequest,
			wantIssue:   engine.IssueMalformedDocument,
		},
		{
			name:      "invalid now",
			target:    "/v1/evaluate?now=tomorrow",
			body:      validStatement,
			wantCode:  http.StatusBadRequest,
			wantError: "invalid_now",
		},
		{
			name:      "body too large",
			target:    "/v1/evaluate",
			body:      `{"suppliers": [` + strings.Repeat(" ", 2048) + `]}`,
			wantCode:  http.StatusRequestEntityTooLarge,
			wantError: "body_too_large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &config.ServerConfig{MaxBodyBytes: 1024})

			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body)
			}
			if rec.Header().Get(RequestIDHeader) == "" {
				t.Error("missing request ID header")
			}

			if tt.wantError != "" {
				var resp ErrorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				if resp.Error.Code != tt.wantError {
					t.Errorf("error code = %q, want %q", resp.Error.Code, tt.wantError)
				}
				return
			}

			var out map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
				t.Fatal(err)
			}
			if out["compliant"] != tt.wantCompliant {
				t.Errorf("compliant = %v, want %v: %v", out["compliant"], tt.wantCompliant, out)
			}
			if tt.wantIssue != "" && !strings.Contains(mustJSON(t, out), `"`+tt.wantIssue+`"`) {
				t.Errorf("issue %s missing from %v", tt.wantIssue, out)
			}
		})
	}
}

func TestHandleEvaluate_RequestIDInAudit(t *testing.T) {
	srv, rec := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate?now=2025-03-01", strings.NewReader(validStatement))
	req.Header.Set(RequestIDHeader, "req-abc")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-abc" {
		t.Errorf("response request ID = %q", got)
	}
	if len(rec.decisions) != 1 {
		t.Fatalf("recorded %d decisions, want 1", len(rec.decisions))
	}
	audit := rec.decisions[0].Audit.Context
	if audit["request_id"] != "req-abc" || audit["source"] != "http" {
		t.Errorf("audit context = %v", audit)
	}
}

func TestRoutes(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "ddsguard"}, prometheus.NewRegistry())
	checker := health.New(time.Second)
	checker.RegisterCheck("storage", func(context.Context) error { return errors.New("refused") })

	srv, _ := newTestServer(t, nil,
		WithHealth(checker),
		WithMetrics(collector, ""),
		WithVersion(health.NewVersionInfo("1.0.0", "abc", "2025-03-01")),
	)
	handler := srv.Handler()

	// one evaluation so the metrics endpoint has series to show
	handler.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(validStatement)))

	tests := []struct {
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{http.MethodGet, "/health", http.StatusOK, `"status":"ok"`},
		{http.MethodGet, "/ready", http.StatusServiceUnavailable, `"degraded"`},
		{http.MethodGet, "/version", http.StatusOK, `"version":"1.0.0"`},
		{http.MethodGet, "/metrics", http.StatusOK, `ddsguard_http_requests_total{method="POST",route="/v1/evaluate",status="200"} 1`},
		{http.MethodGet, "/v1/evaluate", http.StatusMethodNotAllowed, "method_not_allowed"},
		{http.MethodGet, "/nope", http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

type panickingSink struct{}

func (panickingSink) Record(context.Context, *engine.Decision) error {
	panic("sink exploded")
}

func TestRecoverer(t *testing.T) {
	eng, err := engine.New(indicators.NewStore(indicators.DefaultSnapshot(), nil), engine.WithAuditSink(panickingSink{}))
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(nil, eng)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluate", strings.NewReader(validStatement)))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request ID header")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t, &config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !srv.IsRunning() {
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() must fail")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("server still running after shutdown")
	}
}

func TestFormatOf(t *testing.T) {
	tests := map[string]string{
		"":                          "",
		"application/json":          "json",
		"application/ld+json":       "json",
		"application/yaml":          "yaml",
		"application/x-yaml":        "yaml",
		"text/plain; charset=utf-8": "",
	}
	for in, want := range tests {
		if got := string(formatOf(in)); got != want {
			t.Errorf("formatOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

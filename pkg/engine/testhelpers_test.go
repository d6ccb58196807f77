package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/indicators"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// validStatement returns a raw statement document whose six checks all hold
// on 2025-03-01.
func validStatement() map[string]any {
	return map[string]any{
		"due_diligence_statement": map[string]any{
			"reference_number":         "DDS-2025-0001",
			"verification_number":      "VN-88231",
			"valid_from":               "2025-01-01",
			"valid_until":              "2025-06-01",
			"information_provider_gln": "4012345000009",
			"products": []any{
				map[string]any{
					"gtin":          "09506000149301",
					"batch_number":  "L1",
					"serial_number": "S1",
					"digital_link":  "https://id.example.com/01/09506000149301/10/L1",
				},
			},
		},
		"risk_mitigation": []any{
			map[string]any{"type": "independent_audit", "description": "annual audit"},
		},
	}
}

func statementField(raw map[string]any) map[string]any {
	return raw["due_diligence_statement"].(map[string]any)
}

func supplier(id, country string, depth int, flags ...string) map[string]any {
	indicators := make(map[string]any)
	for _, f := range flags {
		indicators[f] = true
	}
	return map[string]any{
		"id":                      id,
		"country":                 country,
		"transparency_indicators": indicators,
		"supply_chain_depth":      float64(depth),
	}
}

var allFlags = []string{"geolocation", "land_title", "legal_harvest", "deforestation_free_declaration"}

func compliantSupplyChain() map[string]any {
	return map[string]any{
		"suppliers": []any{
			supplier("S1", "FR", 3, allFlags...),
			supplier("S2", "DE", 2, allFlags...),
			supplier("S3", "NL", 4, allFlags...),
		},
		"products": []any{
			map[string]any{"gtin": "09506000149301", "commodity": "rubber"},
			map[string]any{"gtin": "09506000149301", "commodity": "timber_pulp"},
		},
		"risk_mitigation_measures": []any{
			map[string]any{"type": "independent_audit", "supplier_id": "S1"},
			map[string]any{"type": "satellite_monitoring"},
			map[string]any{"type": "supplier_certification"},
			map[string]any{"type": "field_verification"},
		},
		"assessment_date": "2025-03-01",
	}
}

func evaluateRaw(t *testing.T, raw map[string]any, now string) *Decision {
	t.Helper()
	return Evaluate(document.Adapt(raw), indicators.DefaultSnapshot(), WithNow(date(now)))
}

type recordingSink struct {
	mu        sync.Mutex
	decisions []*Decision
	err       error
}

func (s *recordingSink) Record(_ context.Context, d *Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d)
	return s.err
}

type countingObserver struct {
	mu    sync.Mutex
	count int
}

func (o *countingObserver) ObserveEvaluation(*Decision, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.count++
}

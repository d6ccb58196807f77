package engine

import (
	"testing"

	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/indicators"
)

func TestStatement_AllChecksPass(t *testing.T) {
	d := evaluateRaw(t, validStatement(), "2025-03-01")

	if !d.Compliant {
		t.Fatalf("expected compliant decision, issues = %+v", d.Issues)
	}
	if d.Score != 1.0 || !d.ScoreDefined {
		t.Errorf("Score = %v (defined %v), want 1.0", d.Score, d.ScoreDefined)
	}
	if d.ComplianceLevel != "low" {
		t.Errorf("ComplianceLevel = %q, want low", d.ComplianceLevel)
	}
	if len(d.Issues) != 0 {
		t.Errorf("unexpected issues: %+v", d.Issues)
	}
	if len(d.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %+v", d.Recommendations)
	}
	for _, check := range completenessChecks {
		if d.Checks[check] != true {
			t.Errorf("check %s = %v, want true", check, d.Checks[check])
		}
	}
	if d.Audit.Decision != OutcomeAdmit {
		t.Errorf("audit decision = %q", d.Audit.Decision)
	}
	if d.DocumentID != "DDS-2025-0001" || d.Audit.Context["document_id"] != "DDS-2025-0001" {
		t.Errorf("document id not propagated: %q / %v", d.DocumentID, d.Audit.Context)
	}
}

func TestStatement_TemporalValidity(t *testing.T) {
	tests := []struct {
		name       string
		now        string
		wantValid  bool
		wantIssue  string
		wantSev    Severity
		wantAbsent string
	}{
		{name: "inside window", now: "2025-03-01", wantValid: true, wantAbsent: IssueExpiredStatement},
		{name: "last day", now: "2025-06-01", wantValid: true, wantAbsent: IssueExpiredStatement},
		{name: "expired", now: "2025-07-01", wantIssue: IssueExpiredStatement, wantSev: SeverityHigh},
		{name: "not yet valid", now: "2024-12-01", wantIssue: IssueStatementNotYetValid, wantSev: SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := evaluateRaw(t, validStatement(), tt.now)

			if got := d.Checks[RuleTemporalValidityOK]; got != tt.wantValid {
				t.Errorf("temporal_validity_ok = %v, want %v", got, tt.wantValid)
			}
			if d.Compliant != tt.wantValid {
				t.Errorf("Compliant = %v, want %v", d.Compliant, tt.wantValid)
			}
			if tt.wantIssue != "" {
				found := false
				for _, issue := range d.Issues {
					if issue.Type == tt.wantIssue {
						found = true
						if issue.Severity != tt.wantSev {
							t.Errorf("severity = %q, want %q", issue.Severity, tt.wantSev)
						}
					}
				}
				if !found {
					t.Errorf("expected %s issue, got %v", tt.wantIssue, d.IssueTypes())
				}
			}
			if tt.wantAbsent != "" && d.HasIssue(tt.wantAbsent) {
				t.Errorf("unexpected %s issue", tt.wantAbsent)
			}
		})
	}
}

func TestStatement_ValidationDateOverridesClock(t *testing.T) {
	raw := validStatement()
	raw["validation_date"] = "2025-07-01"

	d := evaluateRaw(t, raw, "2025-03-01")
	if !d.HasIssue(IssueExpiredStatement) {
		t.Errorf("expected validation_date to be used, issues = %v", d.IssueTypes())
	}
	if got := d.EvaluatedAt.Format("2006-01-02"); got != "2025-07-01" {
		t.Errorf("EvaluatedAt = %s", got)
	}
}

func TestStatement_InvalidProducts(t *testing.T) {
	raw := validStatement()
	statementField(raw)["products"] = []any{
		map[string]any{"gtin": "09506000149301"},
		map[string]any{"gtin": "09506000149300"},
		map[string]any{"gtin": "09506000149301", "batch_number": "  "},
		map[string]any{"gtin": "4006381333931", "digital_link": "https://id.example.com/01/09506000149301"},
		map[string]any{"batch_number": "L9"},
		"not-a-product",
	}

	d := evaluateRaw(t, raw, "2025-03-01")
	if d.Compliant {
		t.Fatal("statement with invalid products must not be compliant")
	}
	if d.Checks[RuleProductsValid] != false {
		t.Errorf("products_valid = %v", d.Checks[RuleProductsValid])
	}

	var issue *Issue
	count := 0
	for i := range d.Issues {
		if d.Issues[i].Type == IssueInvalidProducts {
			issue = &d.Issues[i]
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one aggregated invalid_products issue, got %d", count)
	}
	want := []string{
		"products[1] (09506000149300): invalid gtin check digit",
		"products[2] (09506000149301): blank batch number",
		"products[3] (4006381333931): digital link gtin does not match product gtin",
		"products[4]: missing gtin",
		"products[5]: product must be an object",
	}
	if len(issue.Subjects) != len(want) {
		t.Fatalf("Subjects = %v", issue.Subjects)
	}
	for i := range want {
		if issue.Subjects[i] != want[i] {
			t.Errorf("Subjects[%d] = %q, want %q", i, issue.Subjects[i], want[i])
		}
	}
}

func TestStatement_ValidProductPasses(t *testing.T) {
	raw := validStatement()
	statementField(raw)["products"] = []any{map[string]any{"gtin": "09506000149301"}}

	d := evaluateRaw(t, raw, "2025-03-01")
	if d.HasIssue(IssueInvalidProducts) || d.Checks[RuleProductsValid] != true {
		t.Errorf("valid product rejected: %v", d.Issues)
	}
}

func TestStatement_MissingFieldsAndFormats(t *testing.T) {
	raw := validStatement()
	st := statementField(raw)
	delete(st, "verification_number")
	st["valid_from"] = "01/01/2025"
	st["information_provider_gln"] = 4012345000009.0

	d := evaluateRaw(t, raw, "2025-03-01")

	if d.Compliant {
		t.Fatal("expected non-compliant decision")
	}
	wantOrder := []string{
		IssueMissingRequiredFields,
		IssueInvalidFieldFormats,
		IssueInvalidInformationProvider,
	}
	if got := d.IssueTypes(); len(got) != len(wantOrder) {
		t.Fatalf("issues = %v, want %v", got, wantOrder)
	} else {
		for i := range wantOrder {
			if got[i] != wantOrder[i] {
				t.Errorf("issue[%d] = %s, want %s", i, got[i], wantOrder[i])
			}
		}
	}
	if d.Issues[0].Subjects[0] != "verification_number" {
		t.Errorf("missing fields = %v", d.Issues[0].Subjects)
	}

	// Coverage is 5 of 6 distinct fields; a numeric GLN still counts as
	// present. Checks passing: products, mitigation.
	if cov := d.Checks[RuleRequiredFieldsCoverage].(float64); cov != 5.0/6.0 {
		t.Errorf("required_fields_coverage = %v", cov)
	}
	if d.Score != 2.0/6.0 {
		t.Errorf("Score = %v, want 2/6", d.Score)
	}
	if d.ComplianceLevel != "high" {
		t.Errorf("ComplianceLevel = %q, want high", d.ComplianceLevel)
	}
}

func TestStatement_DuplicateRequiredFieldsDoNotInflateCoverage(t *testing.T) {
	cfg := indicators.Default()
	cfg.RequiredFields[indicators.DocumentStatement] = []string{"reference_number", "reference_number", "valid_from"}
	snap, err := indicators.NewSnapshot(cfg, "test", nil)
	if err != nil {
		t.Fatal(err)
	}

	raw := validStatement()
	delete(statementField(raw), "valid_from")

	d := Evaluate(document.Adapt(raw), snap, WithNow(date("2025-03-01")))
	if cov := d.Checks[RuleRequiredFieldsCoverage]; cov != 0.5 {
		t.Errorf("coverage = %v, want 0.5 over two distinct fields", cov)
	}
}

func TestStatement_InvalidDateRange(t *testing.T) {
	raw := validStatement()
	st := statementField(raw)
	st["valid_from"] = "2025-06-01"
	st["valid_until"] = "2025-01-01"

	d := evaluateRaw(t, raw, "2025-03-01")
	if !d.HasIssue(IssueInvalidDateRange) {
		t.Errorf("expected invalid_date_range, got %v", d.IssueTypes())
	}
	if d.HasIssue(IssueInvalidFieldFormats) {
		t.Error("well formed dates must not raise invalid_field_formats")
	}
	if d.Checks[RuleFieldFormatsValid] != false {
		t.Error("field_formats_valid must fail on an inverted range")
	}
}

func TestStatement_EmptyProductsIsInsufficientData(t *testing.T) {
	raw := validStatement()
	statementField(raw)["products"] = []any{}

	d := evaluateRaw(t, raw, "2025-03-01")
	if d.Compliant {
		t.Error("statement without products must not be compliant")
	}
	if !d.HasIssue(IssueInsufficientData) {
		t.Errorf("expected insufficient_data, got %v", d.IssueTypes())
	}
}

func TestStatement_MissingStatementObject(t *testing.T) {
	d := evaluateRaw(t, map[string]any{"due_diligence_statement": nil, "risk_mitigation": []any{}}, "2025-03-01")

	if d.Compliant || d.Score != 0 {
		t.Errorf("Compliant = %v, Score = %v", d.Compliant, d.Score)
	}
	if len(d.Issues) == 0 || d.Issues[0].Type != IssueMissingRequiredFields {
		t.Fatalf("issues = %v", d.IssueTypes())
	}
	if d.Issues[0].Subjects[0] != "due_diligence_statement" {
		t.Errorf("subjects = %v", d.Issues[0].Subjects)
	}
}

func TestStatement_Recommendations(t *testing.T) {
	d := evaluateRaw(t, validStatement(), "2025-05-10")

	if !d.Compliant {
		t.Fatalf("expected compliant, issues %v", d.IssueTypes())
	}
	if d.Checks[RuleRenewalDue] != true || d.Checks[RuleDaysUntilExpiry] != 22 {
		t.Errorf("renewal checks = %v / %v", d.Checks[RuleRenewalDue], d.Checks[RuleDaysUntilExpiry])
	}
	if len(d.Recommendations) != 1 {
		t.Fatalf("recommendations = %+v", d.Recommendations)
	}
	rec := d.Recommendations[0]
	if rec.Priority != SeverityMedium || rec.Timeline != "1 week" || rec.IssueType != "" {
		t.Errorf("renewal recommendation = %+v", rec)
	}

	expired := evaluateRaw(t, validStatement(), "2025-07-01")
	var sawIssueRec, sawReview bool
	for _, r := range expired.Recommendations {
		if r.IssueType == IssueExpiredStatement {
			sawIssueRec = true
			if r.Timeline != "Immediate" || r.Priority != SeverityHigh {
				t.Errorf("expired recommendation = %+v", r)
			}
		}
		if r.IssueType == "" && r.Action == "Conduct a comprehensive review of the due diligence statement" {
			sawReview = true
		}
	}
	if !sawIssueRec {
		t.Error("expected a recommendation for the expired statement")
	}
	if sawReview {
		t.Error("a completeness score of 5/6 must not trigger a review recommendation")
	}

	incomplete := validStatement()
	delete(statementField(incomplete), "information_provider_gln")
	delete(statementField(incomplete), "verification_number")
	d = evaluateRaw(t, incomplete, "2025-03-01")
	found := false
	for _, r := range d.Recommendations {
		if r.IssueType == "" && r.Priority == SeverityMedium && r.Action == "Conduct a comprehensive review of the due diligence statement" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a review recommendation for score %v, got %+v", d.Score, d.Recommendations)
	}
}

func TestStatement_RuleMemoization(t *testing.T) {
	in := &evalInput{
		doc:  document.Adapt(validStatement()),
		ind:  indicators.DefaultSnapshot(),
		now:  date("2025-03-01"),
		lead: 30,
	}
	ev := statementGraph.NewEvaluation(in)

	ev.Bool(RuleCompliant)
	ev.Float(RuleCompletenessScore)
	synthesize(ev, statementDiagnostics)
	recommend(nil, statementRecommendations(ev)...)
	checks(ev, statementCheckNames)

	for _, name := range statementGraph.Names() {
		if n := ev.Computations(name); n > 1 {
			t.Errorf("rule %s computed %d times", name, n)
		}
	}
	if ev.Computations(RuleFieldFormatsValid) != 1 {
		t.Errorf("field_formats_valid computed %d times, want 1", ev.Computations(RuleFieldFormatsValid))
	}
}

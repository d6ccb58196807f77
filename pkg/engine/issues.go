package engine

import (
	"fmt"
	"strings"

	"mercator-hq/ddsguard/pkg/rules"
	"mercator-hq/ddsguard/pkg/scoring"
)

// Issue types.
const (
	IssueMissingRequiredFields      = "missing_required_fields"
	IssueInvalidFieldFormats        = "invalid_field_formats"
	IssueInvalidDateRange           = "invalid_date_range"
	IssueExpiredStatement           = "expired_statement"
	IssueStatementNotYetValid       = "statement_not_yet_valid"
	IssueInvalidProducts            = "invalid_products"
	IssueInvalidInformationProvider = "invalid_information_provider"
	IssueMissingRiskMitigation      = "missing_risk_mitigation"
	IssueInsufficientData           = "insufficient_data"
	IssueMissingRequiredInformation = "missing_required_information"
	IssueExcessRisk                 = "excess_risk"
	IssueInsufficientTraceability   = "insufficient_traceability"
	IssueMalformedDocument          = "malformed_document"
	IssueUnsupportedDocument        = "unsupported_document"
	IssueEvaluationError            = "evaluation_error"
)

// diagnostic is one independent issue check. produce returns nil when the
// check is not triggered.
type diagnostic struct {
	name    string
	produce func(ev *rules.Evaluation) *Issue
}

// synthesize runs every diagnostic in order and concatenates their issues.
// Diagnostics do not see each other's results.
func synthesize(ev *rules.Evaluation, diagnostics []diagnostic) []Issue {
	issues := make([]Issue, 0, len(diagnostics))
	for _, d := range diagnostics {
		if issue := d.produce(ev); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues
}

func listOrEmpty[T any](ev *rules.Evaluation, rule string) []T {
	v, err := rules.Get[[]T](ev, rule)
	if err != nil {
		return nil
	}
	return v
}

var statementDiagnostics = []diagnostic{
	{IssueMissingRequiredFields, func(ev *rules.Evaluation) *Issue {
		missing := listOrEmpty[string](ev, RuleMissingFields)
		if len(missing) == 0 {
			return nil
		}
		return &Issue{
			Type:        IssueMissingRequiredFields,
			Severity:    SeverityHigh,
			Description: "Required statement fields are missing: " + strings.Join(missing, ", "),
			Remediation: "Complete all required fields of the due diligence statement",
			Subjects:    missing,
		}
	}},
	{IssueInvalidFieldFormats, func(ev *rules.Evaluation) *Issue {
		if _, err := statementOf(ev); err != nil {
			return nil
		}
		var problems []string
		if !ev.Bool(RuleIdentifiersValid) {
			problems = append(problems, "reference and verification numbers must be non-empty")
		}
		if !ev.Bool(RuleDatesValid) {
			problems = append(problems, "validity dates must use the YYYY-MM-DD format")
		}
		if len(problems) == 0 {
			return nil
		}
		return &Issue{
			Type:        IssueInvalidFieldFormats,
			Severity:    SeverityMedium,
			Description: "Statement fields are malformed: " + strings.Join(problems, "; "),
			Remediation: "Correct the format of the statement identifiers and dates",
		}
	}},
	{IssueInvalidDateRange, func(ev *rules.Evaluation) *Issue {
		if !ev.Bool(RuleDatesValid) || ev.Bool(RuleDateRangeValid) {
			return nil
		}
		return &Issue{
			Type:        IssueInvalidDateRange,
			Severity:    SeverityHigh,
			Description: "The validity start date is not before the end date",
			Remediation: "Set a validity window whose start date precedes its end date",
		}
	}},
	{IssueExpiredStatement, func(ev *rules.Evaluation) *Issue {
		if !ev.Bool(RuleExpired) {
			return nil
		}
		st, _ := statementOf(ev)
		return &Issue{
			Type:        IssueExpiredStatement,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("The statement expired on %s", st.ValidUntil.Or("")),
			Remediation: "Submit a renewed due diligence statement",
		}
	}},
	{IssueStatementNotYetValid, func(ev *rules.Evaluation) *Issue {
		if !ev.Bool(RuleNotYetValid) {
			return nil
		}
		st, _ := statementOf(ev)
		return &Issue{
			Type:        IssueStatementNotYetValid,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("The statement is not valid until %s", st.ValidFrom.Or("")),
			Remediation: "Wait for the validity window to start or correct the start date",
		}
	}},
	{IssueInsufficientData, func(ev *rules.Evaluation) *Issue {
		n, err := rules.Get[int](ev, RuleProductCount)
		if err != nil || n > 0 {
			return nil
		}
		return &Issue{
			Type:        IssueInsufficientData,
			Severity:    SeverityHigh,
			Description: "The statement lists no products",
			Remediation: "List every product covered by the statement",
			Subjects:    []string{"products"},
		}
	}},
	{IssueInvalidProducts, func(ev *rules.Evaluation) *Issue {
		invalid := listOrEmpty[ProductFinding](ev, RuleInvalidProducts)
		if len(invalid) == 0 {
			return nil
		}
		subjects := make([]string, len(invalid))
		for i, f := range invalid {
			subjects[i] = f.String()
		}
		return &Issue{
			Type:        IssueInvalidProducts,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("%d product(s) failed validation", len(invalid)),
			Remediation: "Correct product GTINs, batch and serial numbers and digital links",
			Subjects:    subjects,
		}
	}},
	{IssueInvalidInformationProvider, func(ev *rules.Evaluation) *Issue {
		if ev.Bool(RuleInformationProviderValid) {
			return nil
		}
		return &Issue{
			Type:        IssueInvalidInformationProvider,
			Severity:    SeverityMedium,
			Description: "The information provider GLN is missing or fails check digit validation",
			Remediation: "Provide the 13 digit GLN of the information provider",
		}
	}},
	{IssueMissingRiskMitigation, func(ev *rules.Evaluation) *Issue {
		if ev.Bool(RuleRiskMitigationAdequate) {
			return nil
		}
		return &Issue{
			Type:        IssueMissingRiskMitigation,
			Severity:    SeverityMedium,
			Description: "No recognised risk mitigation measure is declared",
			Remediation: "Document at least one recognised risk mitigation measure",
		}
	}},
}

var supplyChainDiagnostics = []diagnostic{
	{IssueInsufficientData, func(ev *rules.Evaluation) *Issue {
		if ev.Bool(RuleHasSuppliers) {
			return nil
		}
		return &Issue{
			Type:        IssueInsufficientData,
			Severity:    SeverityHigh,
			Description: "No suppliers were provided; supply-chain risk cannot be assessed",
			Remediation: "Provide the list of suppliers with country, transparency and depth information",
			Subjects:    []string{"suppliers"},
		}
	}},
	{IssueInsufficientData, func(ev *rules.Evaluation) *Issue {
		if ev.Bool(RuleHasProducts) {
			return nil
		}
		return &Issue{
			Type:        IssueInsufficientData,
			Severity:    SeverityHigh,
			Description: "No products were provided; commodity risk cannot be assessed",
			Remediation: "Provide the list of sourced products with their commodities",
			Subjects:    []string{"products"},
		}
	}},
	{IssueInsufficientData, func(ev *rules.Evaluation) *Issue {
		// Empty collections are reported above; this covers categories that
		// have entries but nothing usable to score.
		var unscored []string
		for _, c := range []struct{ category, score, collection string }{
			{"geographic", RuleGeographicScore, RuleHasSuppliers},
			{"transparency", RuleTransparencyScore, RuleHasSuppliers},
			{"commodity", RuleCommodityScore, RuleHasProducts},
		} {
			if _, ok := ev.Float(c.score); !ok && ev.Bool(c.collection) {
				unscored = append(unscored, c.category)
			}
		}
		if len(unscored) == 0 {
			return nil
		}
		return &Issue{
			Type:        IssueInsufficientData,
			Severity:    SeverityHigh,
			Description: "Risk cannot be scored for: " + strings.Join(unscored, ", "),
			Remediation: "Provide supplier countries, transparency indicators and product commodities",
			Subjects:    unscored,
		}
	}},
	{IssueMissingRequiredInformation, func(ev *rules.Evaluation) *Issue {
		if !ev.Bool(RuleHasSuppliers) {
			return nil
		}
		coverage, _ := ev.Float(RuleRequiredInformationCoverage)
		threshold := inputOf(ev).ind.Config.Thresholds.RequiredInformationCoverage
		if coverage >= threshold {
			return nil
		}
		return &Issue{
			Type:     IssueMissingRequiredInformation,
			Severity: SeverityHigh,
			Description: fmt.Sprintf("Required supplier information coverage %.2f is below %.2f",
				scoring.Round2(coverage), threshold),
			Remediation: "Collect the missing supplier information",
			Subjects:    listOrEmpty[string](ev, RuleSuppliersMissingInformation),
		}
	}},
	{IssueMissingRiskMitigation, func(ev *rules.Evaluation) *Issue {
		coverage, _ := ev.Float(RuleMitigationCoverage)
		threshold := inputOf(ev).ind.Config.Thresholds.MitigationCoverage
		if coverage >= threshold {
			return nil
		}
		return &Issue{
			Type:     IssueMissingRiskMitigation,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("Risk mitigation coverage %.2f is below %.2f",
				scoring.Round2(coverage), threshold),
			Remediation: "Put additional recognised risk mitigation measures in place",
		}
	}},
	{IssueExcessRisk, func(ev *rules.Evaluation) *Issue {
		score, ok := ev.Float(RuleOverallScore)
		threshold := inputOf(ev).ind.Config.Thresholds.MinOverallScore
		if !ok || score >= threshold {
			return nil
		}
		return &Issue{
			Type:     IssueExcessRisk,
			Severity: SeverityHigh,
			Description: fmt.Sprintf("Overall risk score %.2f is below the acceptable minimum %.2f",
				scoring.Round2(score), threshold),
			Remediation: "Reduce sourcing from high-risk countries and commodities or improve supplier transparency",
			Subjects:    listOrEmpty[string](ev, RuleHighRiskSuppliers),
		}
	}},
	{IssueInsufficientTraceability, func(ev *rules.Evaluation) *Issue {
		if !ev.Bool(RuleHasSuppliers) {
			return nil
		}
		coverage, _ := ev.Float(RuleTraceableCoverage)
		threshold := inputOf(ev).ind.Config.Thresholds.TraceableCoverage
		if coverage >= threshold {
			return nil
		}
		return &Issue{
			Type:     IssueInsufficientTraceability,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("Traceable supplier coverage %.2f is below %.2f (minimum depth %d)",
				scoring.Round2(coverage), threshold, inputOf(ev).ind.Config.MinTraceabilityDepth),
			Remediation: "Map the supply chain of the listed suppliers to the required depth",
			Subjects:    listOrEmpty[string](ev, RuleUntraceableSuppliers),
		}
	}},
}

// recommend maps every issue to a recommendation and appends the threshold
// recommendations produced by extra.
func recommend(issues []Issue, extra ...func() *Recommendation) []Recommendation {
	recs := make([]Recommendation, 0, len(issues)+len(extra))
	for _, issue := range issues {
		recs = append(recs, Recommendation{
			Priority:  issue.Severity,
			Action:    issue.Remediation,
			Rationale: issue.Description,
			Timeline:  issue.Severity.Timeline(),
			IssueType: issue.Type,
		})
	}
	for _, f := range extra {
		if r := f(); r != nil {
			r.Timeline = r.Priority.Timeline()
			recs = append(recs, *r)
		}
	}
	return recs
}

func statementRecommendations(ev *rules.Evaluation) []func() *Recommendation {
	return []func() *Recommendation{
		func() *Recommendation {
			score, _ := ev.Float(RuleCompletenessScore)
			review := inputOf(ev).ind.Config.Thresholds.ReviewScore
			if score >= review {
				return nil
			}
			return &Recommendation{
				Priority:  SeverityMedium,
				Action:    "Conduct a comprehensive review of the due diligence statement",
				Rationale: fmt.Sprintf("Completeness score %.2f is below the review threshold %.2f", scoring.Round2(score), review),
			}
		},
		func() *Recommendation {
			if !ev.Bool(RuleRenewalDue) {
				return nil
			}
			days, _ := rules.Get[int](ev, RuleDaysUntilExpiry)
			return &Recommendation{
				Priority:  SeverityMedium,
				Action:    "Renew the due diligence statement before it expires",
				Rationale: fmt.Sprintf("The statement expires in %d day(s)", days),
			}
		},
	}
}

func supplyChainRecommendations(ev *rules.Evaluation) []func() *Recommendation {
	return []func() *Recommendation{
		func() *Recommendation {
			score, ok := ev.Float(RuleOverallScore)
			review := inputOf(ev).ind.Config.Thresholds.ReviewScore
			if !ok || score >= review {
				return nil
			}
			return &Recommendation{
				Priority:  SeverityHigh,
				Action:    "Apply enhanced due diligence to high-risk suppliers and commodities",
				Rationale: fmt.Sprintf("Overall risk score %.2f is below the review threshold %.2f", scoring.Round2(score), review),
			}
		},
	}
}

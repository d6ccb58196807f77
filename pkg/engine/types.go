package engine

import (
	"encoding/json"
	"time"

	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/indicators"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Timeline returns the remediation timeline for a severity.
func (s Severity) Timeline() string {
	switch s {
	case SeverityHigh:
		return "Immediate"
	case SeverityMedium:
		return "1 week"
	default:
		return "1 month"
	}
}

// Decision outcomes used in audit records.
const (
	OutcomeAdmit  = "admit"
	OutcomeReject = "reject"
)

// LevelUndetermined is reported when the score could not be computed.
const LevelUndetermined = "undetermined"

// Issue is a categorized validation problem.
type Issue struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Remediation string   `json:"remediation"`

	// Subjects names the offending entities for aggregated issues.
	Subjects []string `json:"subjects,omitempty"`
}

// Recommendation is a prioritized remediation action.
type Recommendation struct {
	Priority  Severity `json:"priority"`
	Action    string   `json:"action"`
	Rationale string   `json:"rationale"`
	Timeline  string   `json:"timeline"`

	// IssueType links the recommendation to the issue it addresses. Empty for
	// threshold recommendations.
	IssueType string `json:"issue_type,omitempty"`
}

// AuditRecord is the decision log entry handed to the audit sink.
type AuditRecord struct {
	Decision string            `json:"decision"`
	Message  string            `json:"message"`
	Context  map[string]string `json:"context"`
}

// StatementSummary echoes the key fields of an evaluated statement.
type StatementSummary struct {
	ReferenceNumber        string `json:"reference_number"`
	VerificationNumber     string `json:"verification_number"`
	ValidFrom              string `json:"valid_from"`
	ValidUntil             string `json:"valid_until"`
	InformationProviderGLN string `json:"information_provider_gln"`
	ProductCount           int    `json:"product_count"`
	MitigationCount        int    `json:"mitigation_count"`
	DaysUntilExpiry        *int   `json:"days_until_expiry,omitempty"`
}

// SupplyChainSummary echoes the size of an evaluated supply chain.
type SupplyChainSummary struct {
	SupplierCount   int `json:"supplier_count"`
	ProductCount    int `json:"product_count"`
	CountryCount    int `json:"country_count"`
	MitigationCount int `json:"mitigation_count"`
}

// CategoryAssessment is one supply-chain risk category.
type CategoryAssessment struct {
	// Score is nil when the category could not be scored.
	Score *float64 `json:"score"`

	// Total is the denominator: distinct countries, suppliers or products.
	Total int `json:"total"`

	// Compliant counts the entities that did not contribute risk.
	Compliant int `json:"compliant"`

	// Offending names the entities that did.
	Offending []string `json:"offending"`
}

// RiskAssessment holds the supply-chain category breakdown.
type RiskAssessment struct {
	Geographic   CategoryAssessment    `json:"geographic"`
	Transparency CategoryAssessment    `json:"transparency"`
	Commodity    CategoryAssessment    `json:"commodity"`
	Weights      indicators.Weights    `json:"weights"`
	Coverage     map[string]float64    `json:"coverage"`
	Thresholds   indicators.Thresholds `json:"thresholds"`
}

// Decision is the result of evaluating one document. It is not modified after
// Evaluate returns.
type Decision struct {
	DocumentType document.Kind
	DocumentID   string

	Compliant bool

	// Score is the completeness score for statements and the overall risk
	// score for supply chains. It is 0 when ScoreDefined is false.
	Score        float64
	ScoreDefined bool

	ComplianceLevel string
	Issues          []Issue
	Recommendations []Recommendation

	// Summary is a StatementSummary or SupplyChainSummary.
	Summary any

	// Checks holds the named rule values behind the decision.
	Checks map[string]any

	// RiskAssessment is set for supply-chain documents.
	RiskAssessment *RiskAssessment

	IndicatorsVersion string
	EvaluatedAt       time.Time
	Audit             AuditRecord
}

// IssueTypes returns the issue type tags in order.
func (d *Decision) IssueTypes() []string {
	types := make([]string, len(d.Issues))
	for i, issue := range d.Issues {
		types[i] = issue.Type
	}
	return types
}

// HasIssue reports whether an issue of the given type is present.
func (d *Decision) HasIssue(issueType string) bool {
	for _, issue := range d.Issues {
		if issue.Type == issueType {
			return true
		}
	}
	return false
}

// Outcome returns OutcomeAdmit or OutcomeReject.
func (d *Decision) Outcome() string {
	if d.Compliant {
		return OutcomeAdmit
	}
	return OutcomeReject
}

// MarshalJSON names the score and issue fields after the document type:
// completeness_score and validation_issues for statements, overall_risk_score
// and critical_risk_factors for supply chains.
func (d *Decision) MarshalJSON() ([]byte, error) {
	scoreKey, issuesKey, summaryKey := "score", "issues", "summary"
	switch d.DocumentType {
	case document.KindStatement:
		scoreKey, issuesKey, summaryKey = "completeness_score", "validation_issues", "statement_summary"
	case document.KindSupplyChain:
		scoreKey, issuesKey, summaryKey = "overall_risk_score", "critical_risk_factors", "supply_chain_summary"
	}

	issues := d.Issues
	if issues == nil {
		issues = []Issue{}
	}
	recs := d.Recommendations
	if recs == nil {
		recs = []Recommendation{}
	}

	out := map[string]any{
		"document_type":      d.DocumentType,
		"compliant":          d.Compliant,
		scoreKey:             d.Score,
		"score_defined":      d.ScoreDefined,
		"compliance_level":   d.ComplianceLevel,
		issuesKey:            issues,
		"recommendations":    recs,
		"indicators_version": d.IndicatorsVersion,
		"evaluated_at":       d.EvaluatedAt.Format(time.RFC3339),
		"audit_trail":        d.Audit,
	}
	if d.DocumentID != "" {
		out["document_id"] = d.DocumentID
	}
	if d.Summary != nil {
		out[summaryKey] = d.Summary
	}
	if len(d.Checks) > 0 {
		out["checks"] = d.Checks
	}
	if d.RiskAssessment != nil {
		out["risk_assessment"] = d.RiskAssessment
	}
	return json.Marshal(out)
}

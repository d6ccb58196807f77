package engine

import (
	"fmt"
	"slices"
	"time"

	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/indicators"
	"mercator-hq/ddsguard/pkg/rules"
	"mercator-hq/ddsguard/pkg/scoring"
	"mercator-hq/ddsguard/pkg/validators"
)

// Option configures a single evaluation.
type Option func(*evalOptions)

type evalOptions struct {
	now        time.Time
	documentID string
	context    map[string]string
}

// WithNow sets the evaluation date used when the document does not carry its
// own validation or assessment date.
func WithNow(t time.Time) Option {
	return func(o *evalOptions) {
		o.now = t
	}
}

// WithDocumentID sets the document identifier recorded in the audit context.
func WithDocumentID(id string) Option {
	return func(o *evalOptions) {
		o.documentID = id
	}
}

// WithAuditContext adds caller supplied keys to the audit record context.
// Keys set by the engine take precedence.
func WithAuditContext(ctx map[string]string) Option {
	return func(o *evalOptions) {
		if o.context == nil {
			o.context = make(map[string]string, len(ctx))
		}
		for k, v := range ctx {
			o.context[k] = v
		}
	}
}

// Evaluate evaluates doc against snap and returns the decision. It never
// fails: problems with the document become issues on the decision.
func Evaluate(doc *document.Document, snap *indicators.Snapshot, opts ...Option) (d *Decision) {
	o := &evalOptions{now: time.Now()}
	for _, opt := range opts {
		opt(o)
	}
	if o.documentID == "" {
		o.documentID = doc.ID()
	}

	defer func() {
		if p := recover(); p != nil {
			d = failedDecision(doc, snap, o, Issue{
				Type:        IssueEvaluationError,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("Evaluation failed: %v", p),
				Remediation: "Report the document to the compliance engine maintainers",
			})
		}
	}()

	switch {
	case snap == nil:
		return failedDecision(doc, snap, o, Issue{
			Type:        IssueEvaluationError,
			Severity:    SeverityHigh,
			Description: "No risk indicator configuration is loaded",
			Remediation: "Load a valid risk indicator configuration before evaluating",
		})
	case doc == nil:
		return failedDecision(doc, snap, o, malformedIssue(fmt.Errorf("no document")))
	case doc.Kind == document.KindStatement:
		return evaluateStatement(doc, snap, o)
	case doc.Kind == document.KindSupplyChain:
		return evaluateSupplyChain(doc, snap, o)
	default:
		return failedDecision(doc, snap, o, Issue{
			Type:        IssueUnsupportedDocument,
			Severity:    SeverityHigh,
			Description: "The document is neither a due diligence statement nor supply-chain data",
			Remediation: "Submit a document with a due_diligence_statement or suppliers section",
		})
	}
}

// EvaluateMalformed builds the decision for input that could not be decoded.
func EvaluateMalformed(cause error, snap *indicators.Snapshot, opts ...Option) *Decision {
	o := &evalOptions{now: time.Now()}
	for _, opt := range opts {
		opt(o)
	}
	return failedDecision(nil, snap, o, malformedIssue(cause))
}

func malformedIssue(cause error) Issue {
	return Issue{
		Type:        IssueMalformedDocument,
		Severity:    SeverityHigh,
		Description: fmt.Sprintf("The document could not be read: %v", cause),
		Remediation: "Submit a well-formed JSON or YAML document",
	}
}

// evaluationDate prefers a valid date carried by the document.
func evaluationDate(f document.Field[string], fallback time.Time) time.Time {
	if s, ok := nonBlank(f); ok {
		if t, ok := validators.ParseDate(s); ok {
			return t
		}
	}
	return fallback.UTC()
}

var statementCheckNames = slices.Concat(completenessChecks, []string{
	RuleRequiredFieldsCoverage,
	RuleRenewalDue,
	RuleDaysUntilExpiry,
})

func evaluateStatement(doc *document.Document, snap *indicators.Snapshot, o *evalOptions) *Decision {
	in := &evalInput{
		doc:  doc,
		ind:  snap,
		now:  evaluationDate(doc.Statement.ValidationDate, o.now),
		lead: snap.Config.RenewalLeadDays,
	}
	ev := statementGraph.NewEvaluation(in)

	score, _ := ev.Float(RuleCompletenessScore)
	level, _ := rules.Get[string](ev, RuleComplianceLevel)
	issues := synthesize(ev, statementDiagnostics)

	d := &Decision{
		DocumentType:      document.KindStatement,
		DocumentID:        o.documentID,
		Compliant:         ev.Bool(RuleCompliant),
		Score:             score,
		ScoreDefined:      true,
		ComplianceLevel:   level,
		Issues:            issues,
		Recommendations:   recommend(issues, statementRecommendations(ev)...),
		Summary:           statementSummary(ev),
		Checks:            checks(ev, statementCheckNames),
		IndicatorsVersion: snap.Version,
		EvaluatedAt:       in.now,
	}
	d.Audit = auditRecord(d, o)
	return d
}

func evaluateSupplyChain(doc *document.Document, snap *indicators.Snapshot, o *evalOptions) *Decision {
	in := &evalInput{
		doc: doc,
		ind: snap,
		now: evaluationDate(doc.SupplyChain.AssessmentDate, o.now),
	}
	ev := supplyChainGraph.NewEvaluation(in)

	score, defined := ev.Float(RuleOverallScore)
	level, _ := rules.Get[string](ev, RuleComplianceLevel)
	issues := synthesize(ev, supplyChainDiagnostics)

	d := &Decision{
		DocumentType:    document.KindSupplyChain,
		DocumentID:      o.documentID,
		Compliant:       ev.Bool(RuleCompliant),
		Score:           score,
		ScoreDefined:    defined,
		ComplianceLevel: level,
		Issues:          issues,
		Recommendations: recommend(issues, supplyChainRecommendations(ev)...),
		Summary:         supplyChainSummary(ev),
		Checks: checks(ev, []string{
			RuleHasSuppliers,
			RuleHasProducts,
			RuleGeographicScore,
			RuleTransparencyScore,
			RuleCommodityScore,
			RuleRequiredInformationCoverage,
			RuleMitigationCoverage,
			RuleTraceableCoverage,
		}),
		RiskAssessment:    riskAssessment(ev, snap),
		IndicatorsVersion: snap.Version,
		EvaluatedAt:       in.now,
	}
	d.Audit = auditRecord(d, o)
	return d
}

func failedDecision(doc *document.Document, snap *indicators.Snapshot, o *evalOptions, issue Issue) *Decision {
	kind := document.KindUnknown
	if doc != nil {
		kind = doc.Kind
	}
	issues := []Issue{issue}
	d := &Decision{
		DocumentType:    kind,
		DocumentID:      o.documentID,
		ComplianceLevel: LevelUndetermined,
		Issues:          issues,
		Recommendations: recommend(issues),
		EvaluatedAt:     o.now.UTC(),
	}
	if snap != nil {
		d.IndicatorsVersion = snap.Version
	}
	d.Audit = auditRecord(d, o)
	return d
}

// checks collects the defined values of the named rules.
func checks(ev *rules.Evaluation, names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		if res := ev.Get(name); res.Defined {
			out[name] = res.Value
		}
	}
	return out
}

func statementSummary(ev *rules.Evaluation) *StatementSummary {
	in := inputOf(ev)
	s := &StatementSummary{
		MitigationCount: len(in.doc.Statement.RiskMitigation.Or(nil)),
	}
	st, err := statementOf(ev)
	if err != nil {
		return s
	}
	s.ReferenceNumber = st.ReferenceNumber.Or("")
	s.VerificationNumber = st.VerificationNumber.Or("")
	s.ValidFrom = st.ValidFrom.Or("")
	s.ValidUntil = st.ValidUntil.Or("")
	s.InformationProviderGLN = st.InformationProviderGLN.Or("")
	s.ProductCount = len(st.Products.Or(nil))
	if days, err := rules.Get[int](ev, RuleDaysUntilExpiry); err == nil {
		s.DaysUntilExpiry = &days
	}
	return s
}

func supplyChainSummary(ev *rules.Evaluation) *SupplyChainSummary {
	sc := inputOf(ev).doc.SupplyChain
	s := &SupplyChainSummary{
		SupplierCount:   len(sc.Suppliers.Or(nil)),
		ProductCount:    len(sc.Products.Or(nil)),
		MitigationCount: len(sc.RiskMitigationMeasures.Or(nil)),
	}
	if a, err := rules.Get[*CategoryAssessment](ev, RuleGeographicAssessment); err == nil {
		s.CountryCount = a.Total
	}
	return s
}

func riskAssessment(ev *rules.Evaluation, snap *indicators.Snapshot) *RiskAssessment {
	category := func(rule string) CategoryAssessment {
		a, err := rules.Get[*CategoryAssessment](ev, rule)
		if err != nil {
			return CategoryAssessment{Offending: []string{}}
		}
		return *a
	}
	coverage := make(map[string]float64, 3)
	for _, rule := range []string{RuleRequiredInformationCoverage, RuleMitigationCoverage, RuleTraceableCoverage} {
		v, _ := ev.Float(rule)
		coverage[rule] = scoring.Round2(v)
	}
	return &RiskAssessment{
		Geographic:   category(RuleGeographicAssessment),
		Transparency: category(RuleTransparencyAssessment),
		Commodity:    category(RuleCommodityAssessment),
		Weights:      snap.Config.Weights,
		Coverage:     coverage,
		Thresholds:   snap.Config.Thresholds,
	}
}

func auditRecord(d *Decision, o *evalOptions) AuditRecord {
	ctx := make(map[string]string, len(o.context)+4)
	for k, v := range o.context {
		ctx[k] = v
	}
	ctx["document_id"] = d.DocumentID
	ctx["document_type"] = string(d.DocumentType)
	ctx["evaluated_at"] = d.EvaluatedAt.Format(time.RFC3339)
	ctx["indicators_version"] = d.IndicatorsVersion

	verb := "rejected"
	if d.Compliant {
		verb = "admitted"
	}

	var subject, scoreName string
	switch d.DocumentType {
	case document.KindStatement:
		subject, scoreName = "Due diligence statement", "completeness score"
	case document.KindSupplyChain:
		subject, scoreName = "Supply chain assessment", "overall risk score"
	default:
		subject, scoreName = "Document", "score"
	}
	if d.DocumentID != "" {
		subject += " " + d.DocumentID
	}

	scoreText := "undetermined"
	if d.ScoreDefined {
		scoreText = fmt.Sprintf("%.2f", d.Score)
	}

	return AuditRecord{
		Decision: d.Outcome(),
		Message: fmt.Sprintf("%s %s with %s %s (%s, %d issue(s))",
			subject, verb, scoreName, scoreText, d.ComplianceLevel, len(d.Issues)),
		Context: ctx,
	}
}

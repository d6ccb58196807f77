package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/indicators"
	"mercator-hq/ddsguard/pkg/rules"
	"mercator-hq/ddsguard/pkg/scoring"
	"mercator-hq/ddsguard/pkg/validators"
)

// Statement rule names.
const (
	RuleRequiredFieldsCoverage   = "required_fields_coverage"
	RuleRequiredFieldsPresent    = "required_fields_present"
	RuleMissingFields            = "missing_fields"
	RuleIdentifiersValid         = "identifiers_valid"
	RuleDatesValid               = "dates_valid"
	RuleDateRangeValid           = "date_range_valid"
	RuleFieldFormatsValid        = "field_formats_valid"
	RuleTemporalValidityOK       = "temporal_validity_ok"
	RuleExpired                  = "expired"
	RuleNotYetValid              = "not_yet_valid"
	RuleProductCount             = "product_count"
	RuleInvalidProducts          = "invalid_products"
	RuleProductsValid            = "products_valid"
	RuleInformationProviderValid = "information_provider_valid"
	RuleRiskMitigationAdequate   = "risk_mitigation_adequate"
	RuleCompliant                = "compliant"
	RuleCompletenessScore        = "completeness_score"
	RuleComplianceLevel          = "compliance_level"
	RuleDaysUntilExpiry          = "days_until_expiry"
	RuleRenewalDue               = "renewal_due"
)

// completenessChecks are the six checks behind the completeness score.
var completenessChecks = []string{
	RuleRequiredFieldsPresent,
	RuleFieldFormatsValid,
	RuleTemporalValidityOK,
	RuleProductsValid,
	RuleInformationProviderValid,
	RuleRiskMitigationAdequate,
}

// ProductFinding lists the problems of one invalid product.
type ProductFinding struct {
	Index    int      `json:"index"`
	GTIN     string   `json:"gtin,omitempty"`
	Problems []string `json:"problems"`
}

// String renders the finding for issue subjects.
func (f ProductFinding) String() string {
	label := fmt.Sprintf("products[%d]", f.Index)
	if f.GTIN != "" {
		label += " (" + f.GTIN + ")"
	}
	return label + ": " + strings.Join(f.Problems, "; ")
}

var statementGraph = buildStatementGraph()

func statementOf(ev *rules.Evaluation) (*document.DueDiligenceStatement, error) {
	in := inputOf(ev)
	if in.doc.Statement == nil {
		return nil, fmt.Errorf("document is not a statement")
	}
	return in.doc.Statement.Statement.Get()
}

func buildStatementGraph() *rules.Graph {
	g := rules.NewGraph()
	g.MustRegister(
		rules.New(RuleRequiredFieldsCoverage, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return nil, err
			}
			required := inputOf(ev).ind.RequiredFields(indicators.DocumentStatement)
			want := rules.SetOf(required, func(f string) (string, bool) { return f, true })
			have := rules.SetOf(required, func(f string) (string, bool) { return f, st.Keys.Has(f) })
			return scoring.Ratio(have.Len(), want.Len())
		}).WithDefault(0.0).Describe("share of distinct required statement fields present"),

		rules.New(RuleRequiredFieldsPresent, func(ev *rules.Evaluation) (any, error) {
			coverage, ok := ev.Float(RuleRequiredFieldsCoverage)
			return ok && coverage == 1, nil
		}, RuleRequiredFieldsCoverage).WithDefault(false),

		rules.New(RuleMissingFields, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return []string{indicators.DocumentStatement}, nil
			}
			seen := rules.NewSet[string]()
			return rules.ListOf(inputOf(ev).ind.RequiredFields(indicators.DocumentStatement), func(f string) (string, bool) {
				if st.Keys.Has(f) || seen.Has(f) {
					return "", false
				}
				seen.Add(f)
				return f, true
			}), nil
		}).WithDefault([]string{}),

		rules.New(RuleIdentifiersValid, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return nil, err
			}
			_, refOK := nonBlank(st.ReferenceNumber)
			_, verOK := nonBlank(st.VerificationNumber)
			return refOK && verOK, nil
		}).WithDefault(false),

		rules.New(RuleDatesValid, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return nil, err
			}
			dates := []document.Field[string]{st.ValidFrom, st.ValidUntil}
			return rules.Every(dates, func(f document.Field[string]) bool {
				return f.Present && validators.ValidDate(f.Value)
			}), nil
		}).WithDefault(false),

		rules.New(RuleDateRangeValid, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return nil, err
			}
			return validators.ValidDateRange(st.ValidFrom.Or(""), st.ValidUntil.Or("")), nil
		}).WithDefault(false),

		rules.New(RuleFieldFormatsValid, func(ev *rules.Evaluation) (any, error) {
			return ev.Bool(RuleIdentifiersValid) && ev.Bool(RuleDatesValid) && ev.Bool(RuleDateRangeValid), nil
		}, RuleIdentifiersValid, RuleDatesValid, RuleDateRangeValid).WithDefault(false),

		rules.New(RuleTemporalValidityOK, func(ev *rules.Evaluation) (any, error) {
			from, until, err := validityWindow(ev)
			if err != nil {
				return nil, err
			}
			return validators.WithinWindow(inputOf(ev).now, from, until), nil
		}).WithDefault(false),

		rules.New(RuleExpired, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return nil, err
			}
			until, ok := validators.ParseDate(st.ValidUntil.Or(""))
			if !ok {
				return nil, fmt.Errorf("valid_until is not a date")
			}
			return validators.Day(inputOf(ev).now).After(until), nil
		}).WithDefault(false),

		rules.New(RuleNotYetValid, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return nil, err
			}
			from, ok := validators.ParseDate(st.ValidFrom.Or(""))
			if !ok {
				return nil, fmt.Errorf("valid_from is not a date")
			}
			return validators.Day(inputOf(ev).now).Before(from), nil
		}).WithDefault(false),

		rules.New(RuleProductCount, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return nil, err
			}
			products, err := st.Products.Get()
			if err != nil {
				return nil, err
			}
			return len(products), nil
		}),

		rules.New(RuleInvalidProducts, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return nil, err
			}
			products, err := st.Products.Get()
			if err != nil {
				return nil, err
			}
			return rules.ListOf(products, func(p document.Product) (ProductFinding, bool) {
				problems := productProblems(p)
				if len(problems) == 0 {
					return ProductFinding{}, false
				}
				return ProductFinding{Index: p.Index, GTIN: p.GTIN.Or(""), Problems: problems}, true
			}), nil
		}).WithDefault([]ProductFinding{}),

		rules.New(RuleProductsValid, func(ev *rules.Evaluation) (any, error) {
			count, err := rules.Get[int](ev, RuleProductCount)
			if err != nil {
				return nil, err
			}
			if count == 0 {
				return nil, errNotApplicable
			}
			invalid, err := rules.Get[[]ProductFinding](ev, RuleInvalidProducts)
			if err != nil {
				return nil, err
			}
			return len(invalid) == 0, nil
		}, RuleProductCount, RuleInvalidProducts).WithDefault(false),

		rules.New(RuleInformationProviderValid, func(ev *rules.Evaluation) (any, error) {
			st, err := statementOf(ev)
			if err != nil {
				return nil, err
			}
			gln, err := st.InformationProviderGLN.Get()
			if err != nil {
				return nil, err
			}
			return validators.ValidGLN(strings.TrimSpace(gln)), nil
		}).WithDefault(false),

		rules.New(RuleRiskMitigationAdequate, func(ev *rules.Evaluation) (any, error) {
			in := inputOf(ev)
			measures, err := in.doc.Statement.RiskMitigation.Get()
			if err != nil {
				return nil, err
			}
			return rules.Some(measures, func(m document.MitigationMeasure) bool {
				t, ok := nonBlank(m.Type)
				return ok && in.ind.IsMitigationType(t)
			}), nil
		}).WithDefault(false),

		rules.New(RuleCompliant, func(ev *rules.Evaluation) (any, error) {
			return ev.Bool(RuleRequiredFieldsPresent) &&
				ev.Bool(RuleFieldFormatsValid) &&
				ev.Bool(RuleTemporalValidityOK) &&
				ev.Bool(RuleProductsValid), nil
		}, RuleRequiredFieldsPresent, RuleFieldFormatsValid, RuleTemporalValidityOK, RuleProductsValid).WithDefault(false),

		rules.New(RuleCompletenessScore, func(ev *rules.Evaluation) (any, error) {
			passed := 0
			for _, check := range completenessChecks {
				if ev.Bool(check) {
					passed++
				}
			}
			return scoring.Ratio(passed, len(completenessChecks))
		}, completenessChecks...).WithDefault(0.0),

		rules.New(RuleComplianceLevel, func(ev *rules.Evaluation) (any, error) {
			score, ok := ev.Float(RuleCompletenessScore)
			if !ok {
				return LevelUndetermined, nil
			}
			return inputOf(ev).ind.RiskLevel(score), nil
		}, RuleCompletenessScore),

		rules.New(RuleDaysUntilExpiry, func(ev *rules.Evaluation) (any, error) {
			_, until, err := validityWindow(ev)
			if err != nil {
				return nil, err
			}
			return validators.DaysBetween(inputOf(ev).now, until), nil
		}),

		rules.New(RuleRenewalDue, func(ev *rules.Evaluation) (any, error) {
			days, err := rules.Get[int](ev, RuleDaysUntilExpiry)
			if err != nil {
				return nil, err
			}
			return days >= 0 && days <= inputOf(ev).lead, nil
		}, RuleDaysUntilExpiry).WithDefault(false),
	)
	if err := g.Validate(); err != nil {
		panic(err)
	}
	return g
}

// validityWindow returns the parsed statement validity window.
func validityWindow(ev *rules.Evaluation) (from, until time.Time, err error) {
	st, err := statementOf(ev)
	if err != nil {
		return from, until, err
	}
	from, ok := validators.ParseDate(st.ValidFrom.Or(""))
	if !ok {
		return from, until, fmt.Errorf("valid_from is not a date")
	}
	until, ok = validators.ParseDate(st.ValidUntil.Or(""))
	if !ok {
		return from, until, fmt.Errorf("valid_until is not a date")
	}
	return from, until, nil
}

// productProblems lists what is wrong with one product. An empty result
// means the product is valid.
func productProblems(p document.Product) []string {
	var problems []string

	var typeErr *document.FieldTypeError
	if errors.As(p.GTIN.Err, &typeErr) && typeErr.Want == "object" {
		return []string{"product must be an object"}
	}

	gtin, gtinOK := nonBlank(p.GTIN)
	switch {
	case !p.GTIN.Present && p.GTIN.Err != nil && !isAbsent(p.GTIN.Err):
		problems = append(problems, fieldProblem(p.GTIN, "gtin"))
	case !gtinOK:
		problems = append(problems, "missing gtin")
	case !validators.ValidGTIN(gtin):
		problems = append(problems, "invalid gtin check digit")
		gtinOK = false
	}

	if msg := fieldProblem(p.BatchNumber, "batch number"); msg != "" {
		problems = append(problems, msg)
	}
	if msg := fieldProblem(p.SerialNumber, "serial number"); msg != "" {
		problems = append(problems, msg)
	}

	if msg := fieldProblem(p.DigitalLink, "digital link"); msg != "" {
		problems = append(problems, msg)
	} else if uri, ok := nonBlank(p.DigitalLink); ok {
		link, err := validators.ParseDigitalLink(uri)
		switch {
		case err != nil:
			problems = append(problems, "invalid digital link")
		case gtinOK && !sameGTIN(link.GTIN, gtin):
			problems = append(problems, "digital link gtin does not match product gtin")
		}
	}

	return problems
}

func isAbsent(err error) bool {
	var absent *document.FieldAbsentError
	return errors.As(err, &absent)
}

// sameGTIN compares GTINs after left padding both to 14 digits.
func sameGTIN(a, b string) bool {
	return padGTIN(a) == padGTIN(b)
}

func padGTIN(s string) string {
	if len(s) >= 14 {
		return s
	}
	return strings.Repeat("0", 14-len(s)) + s
}

package engine

import (
	"fmt"
	"strings"

	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/indicators"
	"mercator-hq/ddsguard/pkg/rules"
	"mercator-hq/ddsguard/pkg/scoring"
)

// Supply-chain rule names. RuleCompliant and RuleComplianceLevel are shared
// with the statement rule set.
const (
	RuleSupplierCount               = "supplier_count"
	RuleSupplyProductCount          = "product_count"
	RuleHasSuppliers                = "has_suppliers"
	RuleHasProducts                 = "has_products"
	RuleGeographicAssessment        = "geographic_assessment"
	RuleTransparencyAssessment      = "transparency_assessment"
	RuleCommodityAssessment         = "commodity_assessment"
	RuleGeographicScore             = "geographic_risk_score"
	RuleTransparencyScore           = "transparency_risk_score"
	RuleCommodityScore              = "commodity_risk_score"
	RuleOverallScore                = "overall_risk_score"
	RuleRequiredInformationCoverage = "required_information_coverage"
	RuleSuppliersMissingInformation = "suppliers_missing_information"
	RuleMitigationCoverage          = "mitigation_coverage"
	RuleTraceableCoverage           = "traceable_coverage"
	RuleUntraceableSuppliers        = "untraceable_suppliers"
	RuleHighRiskSuppliers           = "high_risk_suppliers"
)

var supplyChainGraph = buildSupplyChainGraph()

func suppliersOf(ev *rules.Evaluation) ([]document.Supplier, error) {
	in := inputOf(ev)
	if in.doc.SupplyChain == nil {
		return nil, fmt.Errorf("document is not supply-chain data")
	}
	return in.doc.SupplyChain.Suppliers.Get()
}

func supplyProductsOf(ev *rules.Evaluation) ([]document.SupplyChainProduct, error) {
	in := inputOf(ev)
	if in.doc.SupplyChain == nil {
		return nil, fmt.Errorf("document is not supply-chain data")
	}
	return in.doc.SupplyChain.Products.Get()
}

// nonEmptySuppliers returns the supplier list, failing when it is absent or
// empty so that dependent ratios stay undefined instead of scoring 0/0.
func nonEmptySuppliers(ev *rules.Evaluation) ([]document.Supplier, error) {
	suppliers, err := suppliersOf(ev)
	if err != nil {
		return nil, err
	}
	if len(suppliers) == 0 {
		return nil, fmt.Errorf("suppliers: %w", scoring.ErrEmpty)
	}
	return suppliers, nil
}

func supplierLabel(s document.Supplier) string {
	if id, ok := nonBlank(s.ID); ok {
		return id
	}
	return fmt.Sprintf("suppliers[%d]", s.Index)
}

func countryOf(s document.Supplier) (string, bool) {
	c, ok := nonBlank(s.Country)
	return strings.ToUpper(c), ok
}

// supplierHas reports whether field is present on s. Blank identifiers and
// countries count as missing.
func supplierHas(s document.Supplier, field string) bool {
	if !s.Keys.Has(field) {
		return false
	}
	switch field {
	case "id":
		_, ok := nonBlank(s.ID)
		return ok
	case "country":
		_, ok := countryOf(s)
		return ok
	}
	return true
}

func scoreOf(ev *rules.Evaluation, assessment string) (any, error) {
	a, err := rules.Get[*CategoryAssessment](ev, assessment)
	if err != nil {
		return nil, err
	}
	if a.Score == nil {
		return nil, fmt.Errorf("%s: %w", assessment, scoring.ErrEmpty)
	}
	return *a.Score, nil
}

func buildSupplyChainGraph() *rules.Graph {
	g := rules.NewGraph()
	g.MustRegister(
		rules.New(RuleSupplierCount, func(ev *rules.Evaluation) (any, error) {
			suppliers, err := suppliersOf(ev)
			if err != nil {
				return nil, err
			}
			return len(suppliers), nil
		}).WithDefault(0),

		rules.New(RuleSupplyProductCount, func(ev *rules.Evaluation) (any, error) {
			products, err := supplyProductsOf(ev)
			if err != nil {
				return nil, err
			}
			return len(products), nil
		}).WithDefault(0),

		rules.New(RuleHasSuppliers, func(ev *rules.Evaluation) (any, error) {
			n, err := rules.Get[int](ev, RuleSupplierCount)
			return n > 0, err
		}, RuleSupplierCount).WithDefault(false),

		rules.New(RuleHasProducts, func(ev *rules.Evaluation) (any, error) {
			n, err := rules.Get[int](ev, RuleSupplyProductCount)
			return n > 0, err
		}, RuleSupplyProductCount).WithDefault(false),

		rules.New(RuleGeographicAssessment, func(ev *rules.Evaluation) (any, error) {
			suppliers, err := nonEmptySuppliers(ev)
			if err != nil {
				return nil, err
			}
			ind := inputOf(ev).ind
			countries := rules.SetOf(suppliers, countryOf)
			highRisk := rules.SetOf(rules.Sorted(countries), func(c string) (string, bool) {
				return c, ind.IsHighRiskCountry(c)
			})

			a := &CategoryAssessment{
				Total:     countries.Len(),
				Compliant: countries.Len() - highRisk.Len(),
				Offending: rules.Sorted(highRisk),
			}
			if score, err := scoring.Ratio(a.Compliant, a.Total); err == nil {
				a.Score = &score
			}
			return a, nil
		}).Describe("distinct supplier countries outside the high-risk set"),

		rules.New(RuleTransparencyAssessment, func(ev *rules.Evaluation) (any, error) {
			suppliers, err := nonEmptySuppliers(ev)
			if err != nil {
				return nil, err
			}
			required := rules.Sorted(rules.NewSet(inputOf(ev).ind.Config.TransparencyIndicators...))

			a := &CategoryAssessment{Total: len(suppliers), Offending: []string{}}
			ratios := make([]float64, 0, len(suppliers))
			for _, s := range suppliers {
				flags := s.TransparencyIndicators.Or(nil)
				present := rules.SetOf(required, func(name string) (string, bool) { return name, flags[name] })
				r, err := scoring.Ratio(present.Len(), len(required))
				if err != nil {
					return nil, err
				}
				ratios = append(ratios, r)
				if r == 1 {
					a.Compliant++
				} else {
					a.Offending = append(a.Offending, supplierLabel(s))
				}
			}
			if score, err := scoring.Mean(ratios); err == nil {
				a.Score = &score
			}
			return a, nil
		}).Describe("mean share of required transparency indicators reported per supplier"),

		rules.New(RuleCommodityAssessment, func(ev *rules.Evaluation) (any, error) {
			products, err := supplyProductsOf(ev)
			if err != nil {
				return nil, err
			}
			if len(products) == 0 {
				return nil, fmt.Errorf("products: %w", scoring.ErrEmpty)
			}
			ind := inputOf(ev).ind

			offending := rules.NewSet[string]()
			a := &CategoryAssessment{Total: len(products)}
			for _, p := range products {
				commodity, ok := nonBlank(p.Commodity)
				switch {
				case !ok:
					offending.Add("unspecified")
				case ind.IsHighRiskCommodity(commodity):
					offending.Add(strings.ToLower(commodity))
				default:
					a.Compliant++
				}
			}
			a.Offending = rules.Sorted(offending)
			if score, err := scoring.Ratio(a.Compliant, a.Total); err == nil {
				a.Score = &score
			}
			return a, nil
		}).Describe("products whose commodity is outside the high-risk set"),

		rules.New(RuleGeographicScore, func(ev *rules.Evaluation) (any, error) {
			return scoreOf(ev, RuleGeographicAssessment)
		}, RuleGeographicAssessment),

		rules.New(RuleTransparencyScore, func(ev *rules.Evaluation) (any, error) {
			return scoreOf(ev, RuleTransparencyAssessment)
		}, RuleTransparencyAssessment),

		rules.New(RuleCommodityScore, func(ev *rules.Evaluation) (any, error) {
			return scoreOf(ev, RuleCommodityAssessment)
		}, RuleCommodityAssessment),

		rules.New(RuleOverallScore, func(ev *rules.Evaluation) (any, error) {
			scores := make(map[string]float64, 3)
			for category, rule := range map[string]string{
				"geographic":   RuleGeographicScore,
				"transparency": RuleTransparencyScore,
				"commodity":    RuleCommodityScore,
			} {
				v, err := rules.Get[float64](ev, rule)
				if err != nil {
					return nil, err
				}
				scores[category] = v
			}
			return scoring.Weighted(scores, inputOf(ev).ind.Config.Weights.Map())
		}, RuleGeographicScore, RuleTransparencyScore, RuleCommodityScore),

		rules.New(RuleRequiredInformationCoverage, func(ev *rules.Evaluation) (any, error) {
			suppliers, err := nonEmptySuppliers(ev)
			if err != nil {
				return nil, err
			}
			required := rules.NewSet(inputOf(ev).ind.RequiredFields(indicators.DocumentSupplier)...)

			type supplierField struct{ supplier, field string }
			labels := rules.SetOf(suppliers, func(s document.Supplier) (string, bool) { return supplierLabel(s), true })
			present := rules.NewSet[supplierField]()
			for _, s := range suppliers {
				for field := range required {
					if supplierHas(s, field) {
						present.Add(supplierField{supplierLabel(s), field})
					}
				}
			}
			return scoring.Ratio(present.Len(), labels.Len()*required.Len())
		}).WithDefault(0.0).Describe("distinct (supplier, required field) pairs present"),

		rules.New(RuleSuppliersMissingInformation, func(ev *rules.Evaluation) (any, error) {
			suppliers, err := suppliersOf(ev)
			if err != nil {
				return nil, err
			}
			required := inputOf(ev).ind.RequiredFields(indicators.DocumentSupplier)
			return rules.ListOf(suppliers, func(s document.Supplier) (string, bool) {
				missing := rules.ListOf(required, func(f string) (string, bool) { return f, !supplierHas(s, f) })
				if len(missing) == 0 {
					return "", false
				}
				return supplierLabel(s) + ": " + strings.Join(missing, ", "), true
			}), nil
		}).WithDefault([]string{}),

		rules.New(RuleMitigationCoverage, func(ev *rules.Evaluation) (any, error) {
			in := inputOf(ev)
			measures := in.doc.SupplyChain.RiskMitigationMeasures
			if measures.Err != nil && !isAbsent(measures.Err) {
				return nil, measures.Err
			}
			recognised := rules.SetOf(measures.Or(nil), func(m document.MitigationMeasure) (string, bool) {
				t, ok := nonBlank(m.Type)
				t = strings.ToLower(t)
				return t, ok && in.ind.IsMitigationType(t)
			})
			enumerated := rules.NewSet(in.ind.Config.MitigationMeasureTypes...)
			return scoring.Ratio(recognised.Len(), enumerated.Len())
		}).WithDefault(0.0).Describe("distinct recognised mitigation measure types in place"),

		rules.New(RuleTraceableCoverage, func(ev *rules.Evaluation) (any, error) {
			suppliers, err := nonEmptySuppliers(ev)
			if err != nil {
				return nil, err
			}
			untraceable, err := rules.Get[[]string](ev, RuleUntraceableSuppliers)
			if err != nil {
				return nil, err
			}
			return scoring.Ratio(len(suppliers)-len(untraceable), len(suppliers))
		}, RuleUntraceableSuppliers).WithDefault(0.0),

		rules.New(RuleUntraceableSuppliers, func(ev *rules.Evaluation) (any, error) {
			suppliers, err := suppliersOf(ev)
			if err != nil {
				return nil, err
			}
			minDepth := inputOf(ev).ind.Config.MinTraceabilityDepth
			return rules.ListOf(suppliers, func(s document.Supplier) (string, bool) {
				depth, err := s.SupplyChainDepth.Get()
				return supplierLabel(s), err != nil || depth < minDepth
			}), nil
		}).WithDefault([]string{}),

		rules.New(RuleHighRiskSuppliers, func(ev *rules.Evaluation) (any, error) {
			suppliers, err := suppliersOf(ev)
			if err != nil {
				return nil, err
			}
			ind := inputOf(ev).ind
			return rules.ListOf(suppliers, func(s document.Supplier) (string, bool) {
				c, ok := countryOf(s)
				return supplierLabel(s) + " (" + c + ")", ok && ind.IsHighRiskCountry(c)
			}), nil
		}).WithDefault([]string{}),

		rules.New(RuleCompliant, func(ev *rules.Evaluation) (any, error) {
			th := inputOf(ev).ind.Config.Thresholds
			reqInfo, _ := ev.Float(RuleRequiredInformationCoverage)
			mitigation, _ := ev.Float(RuleMitigationCoverage)
			traceable, _ := ev.Float(RuleTraceableCoverage)
			_, scored := ev.Float(RuleOverallScore)
			return ev.Bool(RuleHasSuppliers) &&
				ev.Bool(RuleHasProducts) &&
				scored &&
				reqInfo >= th.RequiredInformationCoverage &&
				mitigation >= th.MitigationCoverage &&
				traceable >= th.TraceableCoverage, nil
		}, RuleHasSuppliers, RuleHasProducts, RuleOverallScore,
			RuleRequiredInformationCoverage, RuleMitigationCoverage, RuleTraceableCoverage).WithDefault(false),

		rules.New(RuleComplianceLevel, func(ev *rules.Evaluation) (any, error) {
			score, ok := ev.Float(RuleOverallScore)
			if !ok {
				return LevelUndetermined, nil
			}
			return inputOf(ev).ind.RiskLevel(score), nil
		}, RuleOverallScore),
	)
	if err := g.Validate(); err != nil {
		panic(err)
	}
	return g
}

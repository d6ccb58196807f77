package indicators

import (
	"mercator-hq/ddsguard/pkg/scoring"
)

// Document type keys used in RequiredFields.
const (
	DocumentStatement = "due_diligence_statement"
	DocumentSupplier  = "supplier"
)

// Config is the risk-indicator reference data.
type Config struct {
	// Version is an optional, human assigned label for the indicator set.
	Version string `yaml:"version" json:"version,omitempty"`

	// RequiredFields lists required keys per document type.
	RequiredFields map[string][]string `yaml:"required_fields" json:"required_fields"`

	// HighRiskCountries holds ISO 3166-1 alpha-2 codes.
	HighRiskCountries []string `yaml:"high_risk_countries" json:"high_risk_countries"`

	// HighRiskCommodities holds commodity identifiers.
	HighRiskCommodities []string `yaml:"high_risk_commodities" json:"high_risk_commodities"`

	// TransparencyIndicators lists the indicator flags every supplier is
	// expected to report.
	TransparencyIndicators []string `yaml:"transparency_indicators" json:"transparency_indicators"`

	// Weights are the category weights of the overall supply-chain score.
	Weights Weights `yaml:"weights" json:"weights"`

	// MinTraceabilityDepth is the supply-chain depth at which a supplier
	// counts as traceable.
	MinTraceabilityDepth int `yaml:"min_traceability_depth" json:"min_traceability_depth"`

	// MitigationMeasureTypes enumerates recognised mitigation measures.
	MitigationMeasureTypes []string `yaml:"mitigation_measure_types" json:"mitigation_measure_types"`

	// RiskLevels maps scores to labels. Bands are checked in order and must
	// have strictly descending MinScore.
	// Default: low >= 0.8, medium >= 0.5
	RiskLevels []scoring.Band `yaml:"risk_levels" json:"risk_levels"`

	// FallbackRiskLevel is the label for scores below every band.
	// Default: "high"
	FallbackRiskLevel string `yaml:"fallback_risk_level" json:"fallback_risk_level"`

	// Thresholds holds admission and recommendation cutoffs.
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`

	// RenewalLeadDays is how many days before expiry a renewal is recommended.
	// Default: 30
	RenewalLeadDays int `yaml:"renewal_lead_days" json:"renewal_lead_days"`
}

// Weights are the per-category weights of the overall risk score.
type Weights struct {
	Geographic   float64 `yaml:"geographic" json:"geographic"`
	Transparency float64 `yaml:"transparency" json:"transparency"`
	Commodity    float64 `yaml:"commodity" json:"commodity"`
}

// Map returns the weights keyed by category name.
func (w Weights) Map() map[string]float64 {
	return map[string]float64{
		"geographic":   w.Geographic,
		"transparency": w.Transparency,
		"commodity":    w.Commodity,
	}
}

// Thresholds are the cutoffs used by admission rules and recommendations.
type Thresholds struct {
	// RequiredInformationCoverage is the minimum share of required supplier
	// information that must be present.
	// Default: 0.8
	RequiredInformationCoverage float64 `yaml:"required_information_coverage" json:"required_information_coverage"`

	// MitigationCoverage is the minimum share of recognised mitigation
	// measure types in place.
	// Default: 0.7
	MitigationCoverage float64 `yaml:"mitigation_coverage" json:"mitigation_coverage"`

	// TraceableCoverage is the minimum share of traceable suppliers.
	// Default: 0.8
	TraceableCoverage float64 `yaml:"traceable_coverage" json:"traceable_coverage"`

	// MinOverallScore is the overall supply-chain score below which an
	// excess risk issue is raised.
	// Default: 0.6
	MinOverallScore float64 `yaml:"min_overall_score" json:"min_overall_score"`

	// ReviewScore is the score below which a review recommendation is added.
	// Default: 0.8
	ReviewScore float64 `yaml:"review_score" json:"review_score"`
}

// DefaultThresholds returns the default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RequiredInformationCoverage: 0.8,
		MitigationCoverage:          0.7,
		TraceableCoverage:           0.8,
		MinOverallScore:             0.6,
		ReviewScore:                 0.8,
	}
}

// DefaultRiskLevels returns the default risk bands.
func DefaultRiskLevels() []scoring.Band {
	return []scoring.Band{
		{Level: "low", MinScore: 0.8},
		{Level: "medium", MinScore: 0.5},
	}
}

// baseConfig holds the defaults applied before a file is decoded on top.
// Reference lists are left empty so a file that omits them fails validation.
func baseConfig() *Config {
	return &Config{
		RiskLevels:        DefaultRiskLevels(),
		FallbackRiskLevel: "high",
		Thresholds:        DefaultThresholds(),
		RenewalLeadDays:   30,
	}
}

// Default returns a complete, valid built-in configuration.
func Default() *Config {
	cfg := baseConfig()
	cfg.Version = "builtin"
	cfg.RequiredFields = map[string][]string{
		DocumentStatement: {
			"reference_number",
			"verification_number",
			"valid_from",
			"valid_until",
			"information_provider_gln",
			"products",
		},
		DocumentSupplier: {
			"id",
			"country",
			"transparency_indicators",
			"supply_chain_depth",
		},
	}
	cfg.HighRiskCountries = []string{"BR", "BO", "CD", "CI", "CM", "GH", "ID", "MY", "NG", "PE", "PY"}
	cfg.HighRiskCommodities = []string{"cattle", "cocoa", "coffee", "palm_oil", "rubber", "soy", "wood"}
	cfg.TransparencyIndicators = []string{
		"geolocation",
		"land_title",
		"legal_harvest",
		"deforestation_free_declaration",
	}
	cfg.Weights = Weights{Geographic: 0.4, Transparency: 0.35, Commodity: 0.25}
	cfg.MinTraceabilityDepth = 2
	cfg.MitigationMeasureTypes = []string{
		"independent_audit",
		"satellite_monitoring",
		"supplier_certification",
		"field_verification",
		"additional_documentation",
	}
	return cfg
}

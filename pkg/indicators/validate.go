package indicators

import (
	"fmt"
	"strings"

	"mercator-hq/ddsguard/pkg/scoring"
)

// FieldError is a validation failure for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g. "weights").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every failed check of a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "risk indicator validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("risk indicator validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("risk indicator validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks cfg and returns a ValidationError listing every problem,
// or nil when the configuration can be used for evaluation.
func Validate(cfg *Config) error {
	if cfg == nil {
		return ValidationError{Errors: []FieldError{{Field: "", Message: "configuration is nil"}}}
	}

	var errs []FieldError
	errs = append(errs, validateRequiredFields(cfg.RequiredFields)...)
	errs = append(errs, validateList("high_risk_countries", cfg.HighRiskCountries)...)
	errs = append(errs, validateList("high_risk_commodities", cfg.HighRiskCommodities)...)
	errs = append(errs, validateList("transparency_indicators", cfg.TransparencyIndicators)...)
	errs = append(errs, validateList("mitigation_measure_types", cfg.MitigationMeasureTypes)...)
	errs = append(errs, validateWeights(cfg.Weights)...)
	errs = append(errs, validateRiskLevels(cfg.RiskLevels, cfg.FallbackRiskLevel)...)
	errs = append(errs, validateThresholds(cfg.Thresholds)...)

	if cfg.MinTraceabilityDepth < 0 {
		errs = append(errs, FieldError{
			Field:   "min_traceability_depth",
			Message: "must be non-negative",
		})
	}
	if cfg.RenewalLeadDays < 0 {
		errs = append(errs, FieldError{
			Field:   "renewal_lead_days",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateRequiredFields(fields map[string][]string) []FieldError {
	var errs []FieldError
	for _, docType := range []string{DocumentStatement, DocumentSupplier} {
		errs = append(errs, validateList("required_fields."+docType, fields[docType])...)
	}
	return errs
}

func validateList(field string, values []string) []FieldError {
	if len(values) == 0 {
		return []FieldError{{Field: field, Message: "must not be empty"}}
	}
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			return []FieldError{{Field: fmt.Sprintf("%s[%d]", field, i), Message: "must not be blank"}}
		}
	}
	return nil
}

func validateWeights(w Weights) []FieldError {
	var errs []FieldError
	for _, cw := range []struct {
		field string
		value float64
	}{
		{"weights.geographic", w.Geographic},
		{"weights.transparency", w.Transparency},
		{"weights.commodity", w.Commodity},
	} {
		if cw.value < 0 || cw.value > 1 {
			errs = append(errs, FieldError{Field: cw.field, Message: fmt.Sprintf("must be between 0 and 1, got %v", cw.value)})
		}
	}
	if !scoring.WeightsSumToOne(w.Geographic, w.Transparency, w.Commodity) {
		errs = append(errs, FieldError{
			Field:   "weights",
			Message: fmt.Sprintf("must sum to 1.0, got %v", w.Geographic+w.Transparency+w.Commodity),
		})
	}
	return errs
}

func validateRiskLevels(bands []scoring.Band, fallback string) []FieldError {
	var errs []FieldError
	if len(bands) == 0 {
		errs = append(errs, FieldError{Field: "risk_levels", Message: "must not be empty"})
	}
	for i, b := range bands {
		field := fmt.Sprintf("risk_levels[%d]", i)
		if strings.TrimSpace(b.Level) == "" {
			errs = append(errs, FieldError{Field: field + ".level", Message: "must not be blank"})
		}
		if b.MinScore < 0 || b.MinScore > 1 {
			errs = append(errs, FieldError{Field: field + ".min_score", Message: "must be between 0 and 1"})
		}
		if i > 0 && b.MinScore >= bands[i-1].MinScore {
			errs = append(errs, FieldError{Field: field + ".min_score", Message: "bands must have strictly descending min_score"})
		}
	}
	if strings.TrimSpace(fallback) == "" {
		errs = append(errs, FieldError{Field: "fallback_risk_level", Message: "must not be blank"})
	}
	return errs
}

func validateThresholds(t Thresholds) []FieldError {
	var errs []FieldError
	for _, th := range []struct {
		field string
		value float64
	}{
		{"thresholds.required_information_coverage", t.RequiredInformationCoverage},
		{"thresholds.mitigation_coverage", t.MitigationCoverage},
		{"thresholds.traceable_coverage", t.TraceableCoverage},
		{"thresholds.min_overall_score", t.MinOverallScore},
		{"thresholds.review_score", t.ReviewScore},
	} {
		if th.value < 0 || th.value > 1 {
			errs = append(errs, FieldError{Field: th.field, Message: fmt.Sprintf("must be between 0 and 1, got %v", th.value)})
		}
	}
	return errs
}

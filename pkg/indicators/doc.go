// Package indicators loads and serves the risk-indicator configuration that
// drives compliance evaluation: required fields per document type, high-risk
// country and commodity sets, category weights, traceability depth,
// recognised mitigation measures, risk-level bands and decision thresholds.
//
// Configuration is validated when loaded and rejected as a whole if any check
// fails. A loaded configuration is wrapped in an immutable Snapshot carrying a
// content hash as its version. Store publishes the current snapshot through an
// atomic pointer so a reload never changes the configuration seen by an
// evaluation already in flight. Watcher reloads the store when the file
// changes on disk and keeps the previous snapshot if the new file is invalid.
//
// # Configuration File
//
//	version: "2025.1"
//	required_fields:
//	  due_diligence_statement: [reference_number, verification_number, valid_from, valid_until, information_provider_gln, products]
//	  supplier: [id, country, transparency_indicators, supply_chain_depth]
//	high_risk_countries: [BR, ID, CD]
//	high_risk_commodities: [palm_oil, soy, cattle]
//	transparency_indicators: [geolocation, land_title, legal_harvest]
//	weights: {geographic: 0.4, transparency: 0.35, commodity: 0.25}
//	min_traceability_depth: 2
//	mitigation_measure_types: [independent_audit, satellite_monitoring]
//	risk_levels:
//	  - {level: low, min_score: 0.8}
//	  - {level: medium, min_score: 0.5}
//	fallback_risk_level: high
//	thresholds:
//	  required_information_coverage: 0.8
//	  mitigation_coverage: 0.7
//	  traceable_coverage: 0.8
//	  min_overall_score: 0.6
//	  review_score: 0.8
//	renewal_lead_days: 30
package indicators

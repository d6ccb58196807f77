// Package document converts raw, untyped compliance documents into typed
// models with explicit optional fields.
//
// Documents arrive as JSON or YAML objects of one of two shapes: a
// due-diligence statement submission or aggregated supply-chain data. The
// adapter never fails on a missing or mistyped field. Instead each field is a
// Field value that records whether it was present and, if not, why. Rule
// evaluation reads fields through Field.Get and treats the returned
// FieldAbsentError or FieldTypeError as "rule not satisfied".
//
// Only input that is not an object at all is rejected, with a
// MalformedDocumentError.
package document

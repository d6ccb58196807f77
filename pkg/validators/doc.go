// Package validators provides the primitive field-level checks used by the
// compliance rule sets: GS1 check digits for GTIN and GLN identifiers, strict
// calendar dates and date ranges, and GS1 Digital Link URIs.
//
// Every function is pure and safe for concurrent use. Malformed input is
// reported through a boolean (or an error for the parsing helpers) and never
// panics.
//
// # Check digits
//
// GS1 identifiers end in a mod-10 check digit. Weights alternate 3 and 1
// starting from the rightmost data digit, and the check digit is
// (10 - (sum mod 10)) mod 10:
//
//	d, _ := validators.CheckDigit("0950600014930") // d == 1
//	validators.ValidGTIN("09506000149301")         // true
//	validators.ValidGTIN("09506000149300")         // false
//
// # Dates
//
// Dates use the strict YYYY-MM-DD layout and are compared at day granularity
// as midnight UTC.
package validators

package export

import (
	"fmt"

	"mercator-hq/ddsguard/pkg/evidence"
)

// Formats accepted by New.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// New returns the exporter for format.
func New(format string) (evidence.Exporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONExporter(true), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want json or csv)", format)
	}
}

// Package export writes evidence records as JSON or CSV.
//
// The JSON exporter writes a single record as an object and anything else as
// an array. The CSV exporter flattens each record into one row with a fixed
// column order (see Header); issue types are joined with ";" and the audit
// context is embedded as a JSON object.
//
//	exporter, err := export.New("csv")
//	if err != nil {
//	    return err
//	}
//	err = exporter.Export(ctx, records, os.Stdout)
//
// Both exporters also provide ExportStream, which consumes the record channel
// returned by Storage.QueryStream. Failures are returned as
// *evidence.ExportError.
package export

package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/ddsguard/pkg/evidence"
)

// JSONExporter exports evidence records to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records as a JSON array. A single record is written as a
// bare object.
func (e *JSONExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	if len(records) == 0 {
		_, err := w.Write([]byte("[]\n"))
		return err
	}

	var v any = records
	if len(records) == 1 {
		v = records[0]
	}
	data, err := e.marshal(v, "")
	if err != nil {
		return evidence.NewExportError("json", len(records), err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return evidence.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream writes records from recordsCh as a JSON array without holding
// them all in memory.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return evidence.NewExportError("json", 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				closing := "]\n"
				if e.Pretty && count > 0 {
					closing = "\n]\n"
				}
				if _, err := w.Write([]byte(closing)); err != nil {
					return evidence.NewExportError("json", count, err)
				}
				return nil
			}

			sep := ","
			if count == 0 {
				sep = ""
			}
			if e.Pretty {
				sep += "\n  "
			}
			data, err := e.marshal(record, "  ")
			if err != nil {
				return evidence.NewExportError("json", count, err)
			}
			if _, err := w.Write(append([]byte(sep), data...)); err != nil {
				return evidence.NewExportError("json", count, err)
			}
			count++
		}
	}
}

func (e *JSONExporter) marshal(v any, prefix string) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(v, prefix, "  ")
	}
	return json.Marshal(v)
}

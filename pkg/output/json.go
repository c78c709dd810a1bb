package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/logreader/pkg/record"
)

// JSONFormatter formats records as JSON lines and the report as indented JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// WriteRecord renders rec as a single JSON object followed by a newline.
func (f *JSONFormatter) WriteRecord(ctx context.Context, rec record.Record, w io.Writer) error {
	if len(f.opts.Fields) > 0 {
		subset := make(record.Record, len(f.opts.Fields))
		for _, k := range f.opts.keys(rec) {
			subset[k] = rec[k]
		}
		rec = subset
	}
	return json.NewEncoder(w).Encode(rec)
}

// WriteReport renders the report as JSON.
func (f *JSONFormatter) WriteReport(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

package output

import (
	"context"
	"fmt"
	"io"

	"github.com/ccollicutt/logreader/pkg/record"
)

// Formatter renders parsed records and the run summary in a specific format.
type Formatter interface {
	// WriteRecord renders one record to the given writer.
	WriteRecord(ctx context.Context, rec record.Record, w io.Writer) error

	// WriteReport renders the run summary to the given writer.
	WriteReport(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Fields restricts and orders the record fields written. Empty means
	// all fields in sorted order.
	Fields []string
}

// New returns the formatter registered under name.
func New(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "json":
		return NewJSONFormatter(opts), nil
	case "text":
		return NewTextFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (must be json or text)", name)
	}
}

// keys returns the record keys to write, honoring opts.Fields.
func (o FormatOptions) keys(rec record.Record) []string {
	if len(o.Fields) == 0 {
		return rec.Keys()
	}
	keys := make([]string, 0, len(o.Fields))
	for _, k := range o.Fields {
		if _, ok := rec[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

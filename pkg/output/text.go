package output

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ccollicutt/logreader/pkg/record"
)

// TextFormatter formats records as key=value lines and the report as
// human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// WriteRecord renders rec as space-separated key=value pairs. Values that
// are empty or contain whitespace, quotes or '=' are quoted.
func (f *TextFormatter) WriteRecord(ctx context.Context, rec record.Record, w io.Writer) error {
	var b strings.Builder
	for i, k := range f.opts.keys(rec) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quoteIfNeeded(rec[k].String()))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"=\\") {
		return strconv.Quote(s)
	}
	return s
}

// WriteReport renders the report as text.
func (f *TextFormatter) WriteReport(ctx context.Context, report *Report, w io.Writer) error {
	s := report.Summary

	fmt.Fprintln(w, "=== Access Log Summary ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Format: %s\n", report.Metadata.Format)
	if len(report.Metadata.Sources) > 0 {
		fmt.Fprintf(w, "Sources: %s\n", strings.Join(report.Metadata.Sources, ", "))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Lines processed: %d\n", s.LinesProcessed)
	fmt.Fprintf(w, "Records parsed: %d\n", s.RecordsParsed)
	fmt.Fprintf(w, "Parse errors: %d\n", s.ParseErrors)
	fmt.Fprintf(w, "Bytes sent: %d\n", s.BytesSent)

	if len(s.StatusCounts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Status codes:")
		codes := make([]int64, 0, len(s.StatusCounts))
		for code := range s.StatusCounts {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
		for _, code := range codes {
			fmt.Fprintf(w, "  %d: %d\n", code, s.StatusCounts[code])
		}
	}

	if !s.FirstSeen.IsZero() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "First request: %s\n", s.FirstSeen.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Last request: %s\n", s.LastSeen.Format("2006-01-02 15:04:05"))
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	return nil
}

// Package output renders parsed access log records and run summaries.
package output

import (
	"time"

	"github.com/ccollicutt/logreader/pkg/record"
)

// Report is the summary of a parse run.
type Report struct {
	Summary  Summary  `json:"summary"`
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// LinesProcessed counts records plus parse errors.
	LinesProcessed int `json:"lines_processed"`

	// RecordsParsed is the number of lines that matched the format.
	RecordsParsed int `json:"records_parsed"`

	// ParseErrors is the number of lines that did not match.
	ParseErrors int `json:"parse_errors"`

	// StatusCounts tallies records by HTTP status.
	StatusCounts map[int64]int `json:"status_counts"`

	// BytesSent sums the size field.
	BytesSent int64 `json:"bytes_sent"`

	// FirstSeen and LastSeen bound the request times seen (offset not applied).
	FirstSeen time.Time `json:"first_seen,omitzero"`
	LastSeen  time.Time `json:"last_seen,omitzero"`
}

// Metadata provides context about the run.
type Metadata struct {
	// Format is the LogFormat string used.
	Format string `json:"format"`

	// Sources lists the inputs that were read.
	Sources []string `json:"sources"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`
}

// NewReport creates an empty Report for a run over sources.
func NewReport(format string, sources []string) *Report {
	return &Report{
		Summary: Summary{
			StatusCounts: make(map[int64]int),
		},
		Metadata: Metadata{
			Format:    format,
			Sources:   sources,
			StartedAt: time.Now(),
		},
	}
}

// Add accounts for one parsed record.
func (r *Report) Add(rec record.Record) {
	r.Summary.LinesProcessed++
	r.Summary.RecordsParsed++

	if status, ok := rec.Int("status"); ok {
		r.Summary.StatusCounts[status]++
	}
	if size, ok := rec.Int("size"); ok {
		r.Summary.BytesSent += size
	}
	if ts, ok := rec.Time("time"); ok {
		t := ts.Time()
		if r.Summary.FirstSeen.IsZero() || t.Before(r.Summary.FirstSeen) {
			r.Summary.FirstSeen = t
		}
		if t.After(r.Summary.LastSeen) {
			r.Summary.LastSeen = t
		}
	}
}

// AddError accounts for one line that failed to parse.
func (r *Report) AddError() {
	r.Summary.LinesProcessed++
	r.Summary.ParseErrors++
}

// Finish records the run duration.
func (r *Report) Finish() {
	r.Metadata.Duration = time.Since(r.Metadata.StartedAt)
}

// HasErrors returns true if any line failed to parse.
func (r *Report) HasErrors() bool {
	return r.Summary.ParseErrors > 0
}

// Package detector identifies which access log format a file is written in.
package detector

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ccollicutt/logreader/pkg/matcher"
	"github.com/ccollicutt/logreader/pkg/reader"
	"github.com/ccollicutt/logreader/pkg/record"
)

// DetectionResult holds the result of analyzing a log file.
type DetectionResult struct {
	Matches      []FormatMatch // Formats that matched, sorted by confidence descending
	SampledLines int           // Number of lines sampled
	ParsedLines  int           // Number of lines the best format parsed
	Note         string        // Warning when the best format did not parse every line
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format       *KnownFormat
	Confidence   float64       // 0.0 to 1.0 (fraction of lines matched)
	MatchCount   int           // Number of lines that matched
	SampleLine   string        // Example line that matched
	SampleRecord record.Record // Record parsed from the sample line
}

// Detector analyzes log files to identify their LogFormat.
type Detector struct {
	formats    []*KnownFormat
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithFormats replaces the candidate formats.
func WithFormats(formats ...*KnownFormat) Option {
	return func(d *Detector) {
		d.formats = formats
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: 100,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes a log file and returns detected formats.
// Compressed (.gz, .zst) files are sampled transparently.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines analyzes a slice of log lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{}

	var sampled []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			sampled = append(sampled, line)
		}
	}
	result.SampledLines = len(sampled)
	if len(sampled) == 0 {
		return result
	}

	for _, format := range d.formats {
		var m FormatMatch
		for _, line := range sampled {
			rec, err := matcher.Match(format.Plan, line)
			if err != nil {
				continue
			}
			if m.MatchCount == 0 {
				m.SampleLine = line
				m.SampleRecord = rec
			}
			m.MatchCount++
		}
		if m.MatchCount == 0 {
			continue
		}
		m.Format = format
		m.Confidence = float64(m.MatchCount) / float64(len(sampled))
		result.Matches = append(result.Matches, m)
	}

	// Sort by confidence descending, then by field count (more specific first)
	sort.SliceStable(result.Matches, func(i, j int) bool {
		if result.Matches[i].Confidence != result.Matches[j].Confidence {
			return result.Matches[i].Confidence > result.Matches[j].Confidence
		}
		return result.Matches[i].Format.Plan.NumFields() > result.Matches[j].Format.Plan.NumFields()
	})

	if best := result.BestMatch(); best != nil {
		result.ParsedLines = best.MatchCount
		if best.MatchCount < result.SampledLines {
			result.Note = fmt.Sprintf("%d of %d sampled lines did not match %q; "+
				"the file may mix formats or use a custom LogFormat",
				result.SampledLines-best.MatchCount, result.SampledLines, best.Format.Name)
		}
	}

	return result
}

// sampleFile reads up to sampleSize non-blank lines from the head of a file.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	f, err := reader.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	for len(lines) < d.sampleSize {
		line, err := f.ReadLine(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

package matcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ccollicutt/logreader/pkg/logformat"
	"github.com/ccollicutt/logreader/pkg/record"
)

// ErrEmptyLine is returned by ParseLine for a line with no content.
var ErrEmptyLine = errors.New("empty line")

// LineParseError reports a line that does not conform to its plan.
type LineParseError struct {
	// Line is the raw line as it was supplied.
	Line string

	// Field is the first record key of the directive that failed, or ""
	// when a literal separator or trailing text did not match.
	Field string

	// Err is the underlying cause.
	Err error
}

func (e *LineParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parsing line %q: field %s: %v", strings.TrimRight(e.Line, "\r\n"), e.Field, e.Err)
	}
	return fmt.Sprintf("parsing line %q: %v", strings.TrimRight(e.Line, "\r\n"), e.Err)
}

func (e *LineParseError) Unwrap() error {
	return e.Err
}

// MaxCachedPlans bounds the ParseLineFormat plan cache. Formats seen after
// the cache is full are compiled on every call.
const MaxCachedPlans = 256

var (
	combinedPlan = logformat.MustCompile(logformat.Combined)

	// plans caches compiled plans by format string for ParseLineFormat.
	plans     sync.Map
	planCount atomic.Int64
)

// ParseLine parses a single line in the COMBINED format. The plan is
// compiled once per process.
func ParseLine(line string) (record.Record, error) {
	return parseWith(combinedPlan, line)
}

// ParseLineFormat parses a single line against format. Up to
// MaxCachedPlans distinct formats are cached so repeated calls with the
// same format compile it only once.
func ParseLineFormat(line, format string) (record.Record, error) {
	plan, err := cachedPlan(format)
	if err != nil {
		return nil, err
	}
	return parseWith(plan, line)
}

func parseWith(plan *logformat.Plan, line string) (record.Record, error) {
	if strings.TrimRight(line, "\r\n") == "" {
		return nil, ErrEmptyLine
	}
	return Match(plan, line)
}

func cachedPlan(format string) (*logformat.Plan, error) {
	if format == logformat.Combined {
		return combinedPlan, nil
	}
	if p, ok := plans.Load(format); ok {
		return p.(*logformat.Plan), nil
	}
	p, err := logformat.Compile(format)
	if err != nil {
		return nil, err
	}
	if planCount.Add(1) > MaxCachedPlans {
		planCount.Add(-1)
		return p, nil
	}
	actual, loaded := plans.LoadOrStore(format, p)
	if loaded {
		planCount.Add(-1)
	}
	return actual.(*logformat.Plan), nil
}

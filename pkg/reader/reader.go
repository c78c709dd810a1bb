// Package reader streams structured records out of access-log sources.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/ccollicutt/logreader/pkg/logformat"
	"github.com/ccollicutt/logreader/pkg/matcher"
	"github.com/ccollicutt/logreader/pkg/record"
)

// Reader applies one compiled plan to every line of a source, in order.
// It is not safe for concurrent use; the plan it holds may be shared.
type Reader struct {
	plan      *logformat.Plan
	src       Source
	lines     LineSource
	owned     *FileLines
	skipBlank bool

	current string
	lineNum int
	done    bool
}

// Option configures a Reader.
type Option func(*options)

type options struct {
	format    string
	plan      *logformat.Plan
	skipBlank bool
}

// WithFormat sets the log format string. The default is logformat.Combined.
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithPlan uses an already compiled plan and takes precedence over WithFormat.
func WithPlan(plan *logformat.Plan) Option {
	return func(o *options) {
		o.plan = plan
	}
}

// WithSkipBlank controls whether empty lines are skipped (default true).
func WithSkipBlank(skip bool) Option {
	return func(o *options) {
		o.skipBlank = skip
	}
}

// New creates a Reader over src. The format is compiled here, so an invalid
// format fails before any line is read. Owned files are opened lazily on
// the first call to Next.
func New(src Source, opts ...Option) (*Reader, error) {
	o := &options{
		format:    logformat.Combined,
		skipBlank: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	switch s := src.(type) {
	case OwnedPath:
		if s == "" {
			return nil, errors.New("reader: empty log file path")
		}
	case Borrowed:
		if s.Lines == nil {
			return nil, errors.New("reader: borrowed source has no line source")
		}
	default:
		return nil, fmt.Errorf("reader: unsupported source %T", src)
	}

	plan := o.plan
	if plan == nil {
		var err error
		plan, err = logformat.Compile(o.format)
		if err != nil {
			return nil, err
		}
	}

	r := &Reader{
		plan:      plan,
		src:       src,
		skipBlank: o.skipBlank,
	}
	if b, ok := src.(Borrowed); ok {
		r.lines = b.Lines
	}
	return r, nil
}

// Plan returns the compiled plan.
func (r *Reader) Plan() *logformat.Plan {
	return r.plan
}

// Name describes the source for diagnostics.
func (r *Reader) Name() string {
	if p, ok := r.src.(OwnedPath); ok {
		return string(p)
	}
	return "<stream>"
}

// CurrentLine returns the raw text of the last line pulled for matching.
// It is retained after the reader is exhausted.
func (r *Reader) CurrentLine() string {
	return r.current
}

// LineNumber returns the number of lines pulled from the source so far,
// including skipped blank lines.
func (r *Reader) LineNumber() int {
	return r.lineNum
}

// Next returns the record for the next line. It returns io.EOF once the
// source is exhausted, at which point an owned file has been closed. A
// *matcher.LineParseError leaves the reader usable: the following call
// moves on to the next line.
func (r *Reader) Next(ctx context.Context) (record.Record, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if r.done {
			return nil, io.EOF
		}
		if r.lines == nil {
			if err := r.open(); err != nil {
				return nil, err
			}
		}

		line, err := r.lines.ReadLine(ctx)
		if err == io.EOF {
			r.done = true
			if cerr := r.release(); cerr != nil {
				return nil, cerr
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		r.lineNum++
		if r.skipBlank && strings.TrimRight(line, "\r\n") == "" {
			continue
		}
		r.current = line
		return matcher.Match(r.plan, line)
	}
}

// All returns an iterator over the remaining records. Line parse errors are
// yielded alongside a nil record and iteration continues if the caller
// keeps ranging; source errors end it. The reader is closed when the loop
// exits for any reason.
func (r *Reader) All(ctx context.Context) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		defer r.Close()
		for {
			rec, err := r.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				var lpe *matcher.LineParseError
				if !errors.As(err, &lpe) {
					yield(nil, err)
					return
				}
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

// Close releases an owned file. A borrowed source is left untouched.
// Subsequent calls to Next return io.EOF. Close is idempotent.
func (r *Reader) Close() error {
	r.done = true
	return r.release()
}

func (r *Reader) open() error {
	path, ok := r.src.(OwnedPath)
	if !ok {
		return errors.New("reader: no line source")
	}
	f, err := OpenFile(string(path))
	if err != nil {
		return err
	}
	r.owned = f
	r.lines = f
	return nil
}

func (r *Reader) release() error {
	if r.owned == nil {
		return nil
	}
	err := r.owned.Close()
	r.owned = nil
	return err
}

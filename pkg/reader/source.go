package reader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Scanner buffer sizes for file and stream sources.
const (
	DefaultBufferSize  = 64 * 1024   // 64KB initial buffer
	DefaultMaxLineSize = 1024 * 1024 // 1MB max line size
)

// LineSource yields raw log lines one at a time. ReadLine returns io.EOF
// when no more lines are available.
type LineSource interface {
	ReadLine(ctx context.Context) (string, error)
}

// Source is where a Reader pulls lines from. It is either an OwnedPath,
// which the Reader opens and closes, or a Borrowed line source, which the
// Reader never closes.
type Source interface {
	source()
}

// OwnedPath is a log file path. The Reader opens it on first use and is
// responsible for closing it. Paths ending in .gz or .zst are decompressed.
type OwnedPath string

func (OwnedPath) source() {}

// Borrowed wraps a caller-owned line source.
type Borrowed struct {
	Lines LineSource
}

func (Borrowed) source() {}

// FromStrings returns a borrowed source over lines. Each element is one raw
// line and is reported verbatim by Reader.CurrentLine.
func FromStrings(lines ...string) Borrowed {
	return Borrowed{Lines: &sliceLines{lines: lines}}
}

// FromReader returns a borrowed source that scans r line by line. The
// Reader never closes r.
func FromReader(r io.Reader) Borrowed {
	return Borrowed{Lines: newScanLines(r)}
}

type sliceLines struct {
	lines []string
	next  int
}

func (s *sliceLines) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.next >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}

type scanLines struct {
	scanner *bufio.Scanner
}

func newScanLines(r io.Reader) *scanLines {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, DefaultBufferSize), DefaultMaxLineSize)
	return &scanLines{scanner: scanner}
}

func (s *scanLines) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// FileLines is a LineSource over a file it owns.
type FileLines struct {
	path    string
	file    *os.File
	closers []func() error
	lines   *scanLines
}

// OpenFile opens path for line reading, decompressing .gz and .zst files.
func OpenFile(path string) (*FileLines, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	fl := &FileLines{path: path, file: f}
	var r io.Reader = f

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("opening gzip log file %s: %w", path, err)
		}
		fl.closers = append(fl.closers, gz.Close)
		r = gz
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("opening zstd log file %s: %w", path, err)
		}
		fl.closers = append(fl.closers, func() error {
			dec.Close()
			return nil
		})
		r = dec
	}

	fl.lines = newScanLines(r)
	return fl, nil
}

// Path returns the file path.
func (f *FileLines) Path() string {
	return f.path
}

// ReadLine returns the next line without its newline.
func (f *FileLines) ReadLine(ctx context.Context) (string, error) {
	if f.file == nil {
		return "", os.ErrClosed
	}
	line, err := f.lines.ReadLine(ctx)
	if err != nil && err != io.EOF && ctx.Err() == nil {
		return "", fmt.Errorf("reading %s: %w", f.path, err)
	}
	return line, err
}

// Close releases the file and any decompressor. It is safe to call more
// than once.
func (f *FileLines) Close() error {
	if f.file == nil {
		return nil
	}
	var firstErr error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := f.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	f.file = nil
	f.closers = nil
	return firstErr
}

// Package logformat compiles Apache/NCSA LogFormat strings into immutable
// matcher plans.
package logformat

import (
	"fmt"

	"github.com/ccollicutt/logreader/pkg/record"
)

// Predefined formats.
const (
	Common   = `%h %l %u %t "%r" %>s %b`
	Combined = Common + ` "%{Referer}i" "%{User-Agent}i"`
)

// Directive is one compiled %-token of a format string.
type Directive struct {
	// Code is the directive letter: h, l, u, t, r, b, s, or i for a
	// %{Name}i header lookup.
	Code byte

	// Header is the header name of a %{Name}i lookup.
	Header string

	// Quoted is true when the format wraps the directive in literal quotes.
	Quoted bool

	// Fields are the record keys this directive produces.
	Fields []string

	// Codec converts the extracted text into typed values.
	Codec record.Codec
}

// String renders the directive in format-string syntax.
func (d *Directive) String() string {
	var s string
	if d.Code == 'i' {
		s = "%{" + d.Header + "}i"
	} else {
		s = "%" + string(d.Code)
	}
	if d.Quoted {
		return `"` + s + `"`
	}
	return s
}

// Element is one step of a Plan: either literal text or a directive.
type Element struct {
	Literal   string
	Directive *Directive
}

// IsLiteral reports whether the element is literal text.
func (e Element) IsLiteral() bool {
	return e.Directive == nil
}

// Plan is the compiled form of a format string. It is never modified after
// Compile returns and may be shared by any number of readers.
type Plan struct {
	format   string
	elements []Element
	fields   []string
}

// Format returns the source format string.
func (p *Plan) Format() string {
	return p.format
}

// Len returns the number of elements in the plan.
func (p *Plan) Len() int {
	return len(p.elements)
}

// At returns element i. The directive it points to must not be modified.
func (p *Plan) At(i int) Element {
	return p.elements[i]
}

// NumFields returns the number of record keys the plan declares.
func (p *Plan) NumFields() int {
	return len(p.fields)
}

// Elements returns a copy of the element sequence.
func (p *Plan) Elements() []Element {
	out := make([]Element, len(p.elements))
	copy(out, p.elements)
	return out
}

// Fields returns the record keys the plan declares, in format order.
func (p *Plan) Fields() []string {
	out := make([]string, len(p.fields))
	copy(out, p.fields)
	return out
}

// FormatError reports an invalid format string.
type FormatError struct {
	Format string
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid log format %q at offset %d: %s", e.Format, e.Offset, e.Msg)
}

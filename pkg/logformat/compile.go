package logformat

import (
	"strings"

	"github.com/ccollicutt/logreader/pkg/record"
)

// Header names that map to conventional lower-case field names. Any other
// header keeps its name verbatim.
var headerFields = map[string]string{
	"Referer":    "referer",
	"User-Agent": "user-agent",
}

// Compile parses format into a Plan.
//
// A directive is '%', an optional '>' modifier, and one of h, l, u, t, r, b,
// s, or the header form %{Name}i. Everything else is literal text. A
// directive immediately wrapped in '"' characters is marked quoted and the
// two quotes become part of it.
func Compile(format string) (*Plan, error) {
	p := &Plan{format: format}
	var lit strings.Builder

	for i := 0; i < len(format); {
		if format[i] != '%' {
			lit.WriteByte(format[i])
			i++
			continue
		}

		d, next, err := parseDirective(format, i)
		if err != nil {
			return nil, err
		}

		text := lit.String()
		lit.Reset()
		if strings.HasSuffix(text, `"`) {
			if next >= len(format) || format[next] != '"' {
				return nil, &FormatError{
					Format: format,
					Offset: i - 1,
					Msg:    "opening quote around " + d.String() + " has no matching closing quote",
				}
			}
			d.Quoted = true
			text = text[:len(text)-1]
			next++
		}
		if text != "" {
			p.elements = append(p.elements, Element{Literal: text})
		}
		p.elements = append(p.elements, Element{Directive: d})
		p.fields = append(p.fields, d.Fields...)
		i = next
	}

	if lit.Len() > 0 {
		p.elements = append(p.elements, Element{Literal: lit.String()})
	}
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(format string) *Plan {
	p, err := Compile(format)
	if err != nil {
		panic(err)
	}
	return p
}

// parseDirective reads the directive starting at format[start] == '%' and
// returns it with the offset just past it.
func parseDirective(format string, start int) (*Directive, int, error) {
	i := start + 1
	if i < len(format) && format[i] == '>' {
		i++
	}
	if i >= len(format) {
		return nil, 0, &FormatError{Format: format, Offset: start, Msg: "directive is missing its code"}
	}

	code := format[i]
	switch code {
	case 'h':
		return &Directive{Code: code, Fields: []string{"ips"}, Codec: record.CodecTextList}, i + 1, nil
	case 'l':
		return &Directive{Code: code, Fields: []string{"logname"}, Codec: record.CodecText}, i + 1, nil
	case 'u':
		return &Directive{Code: code, Fields: []string{"username"}, Codec: record.CodecText}, i + 1, nil
	case 't':
		return &Directive{Code: code, Fields: []string{"time"}, Codec: record.CodecTimestamp}, i + 1, nil
	case 'r':
		return &Directive{
			Code:   code,
			Fields: []string{"method", "path", "protocol"},
			Codec:  record.CodecRequest,
		}, i + 1, nil
	case 'b':
		return &Directive{Code: code, Fields: []string{"size"}, Codec: record.CodecInteger}, i + 1, nil
	case 's':
		return &Directive{Code: code, Fields: []string{"status"}, Codec: record.CodecInteger}, i + 1, nil
	case '{':
		end := strings.IndexByte(format[i+1:], '}')
		if end < 0 {
			return nil, 0, &FormatError{Format: format, Offset: start, Msg: "header directive has no closing '}'"}
		}
		name := format[i+1 : i+1+end]
		after := i + 1 + end + 1
		if name == "" {
			return nil, 0, &FormatError{Format: format, Offset: start, Msg: "header directive has an empty name"}
		}
		if after >= len(format) || format[after] != 'i' {
			return nil, 0, &FormatError{Format: format, Offset: start, Msg: "header directive %{" + name + "} must end in 'i'"}
		}
		field, ok := headerFields[name]
		if !ok {
			field = name
		}
		return &Directive{Code: 'i', Header: name, Fields: []string{field}, Codec: record.CodecText}, after + 1, nil
	default:
		return nil, 0, &FormatError{Format: format, Offset: start, Msg: "unknown directive %" + string(code)}
	}
}

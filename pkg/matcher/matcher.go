// Package matcher applies compiled log format plans to raw log lines.
package matcher

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/ccollicutt/logreader/pkg/logformat"
	"github.com/ccollicutt/logreader/pkg/record"
)

// Match walks plan over line and returns the extracted record. A trailing
// run of newline characters is stripped before matching. On failure the
// error is a *LineParseError and no partial record is returned.
func Match(plan *logformat.Plan, line string) (record.Record, error) {
	text := strings.TrimRight(line, "\r\n")
	rec := make(record.Record, plan.NumFields())
	if err := matchFrom(plan, line, text, 0, 0, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// matchFrom matches plan elements from index start against text[pos:],
// storing decoded fields in rec.
func matchFrom(plan *logformat.Plan, line, text string, start, pos int, rec record.Record) error {
	n := plan.Len()

	for i := start; i < n; i++ {
		el := plan.At(i)
		if el.IsLiteral() {
			if !strings.HasPrefix(text[pos:], el.Literal) {
				return &LineParseError{
					Line: line,
					Err:  errors.Errorf("expected %q at offset %d, found %q", el.Literal, pos, excerpt(text[pos:])),
				}
			}
			pos += len(el.Literal)
			continue
		}

		d := el.Directive
		var (
			raw string
			err error
		)
		switch sep := nextLiteral(plan, i); {
		case d.Quoted:
			raw, pos, err = extractQuoted(text, pos)
		case d.Code == 't' && pos < len(text) && text[pos] == '[':
			raw, pos, err = extractBracketed(text, pos)
		case i == n-1:
			raw, pos = text[pos:], len(text)
		case sep == "":
			raw, pos = extractWord(text, pos)
		default:
			var ends []int
			ends, err = plainEnds(text, pos, sep)
			if err != nil {
				break
			}
			// Longest comma-space continuation first, as long as the rest
			// of the line still matches; the first separator is the fallback.
			for k := len(ends) - 1; k > 0; k-- {
				if record.Apply(d.Codec, d.Fields, text[pos:ends[k]], rec) != nil {
					continue
				}
				if matchFrom(plan, line, text, i+1, ends[k], rec) == nil {
					return nil
				}
			}
			raw, pos = text[pos:ends[0]], ends[0]
		}
		if err != nil {
			return &LineParseError{Line: line, Field: d.Fields[0], Err: err}
		}

		if err := record.Apply(d.Codec, d.Fields, raw, rec); err != nil {
			return &LineParseError{Line: line, Field: d.Fields[0], Err: err}
		}
	}

	if pos != len(text) {
		return &LineParseError{
			Line: line,
			Err:  errors.Errorf("unexpected trailing text %q at offset %d", excerpt(text[pos:]), pos),
		}
	}
	return nil
}

// nextLiteral returns the literal following element i, or "" when the next
// element is another directive.
func nextLiteral(plan *logformat.Plan, i int) string {
	if i+1 < plan.Len() {
		if el := plan.At(i + 1); el.IsLiteral() {
			return el.Literal
		}
	}
	return ""
}

// extractQuoted reads a quoted field starting at the opening quote. \" and
// "" both decode to a quote and \\ decodes to a backslash.
func extractQuoted(text string, pos int) (string, int, error) {
	if pos >= len(text) || text[pos] != '"' {
		return "", pos, errors.Errorf("expected opening quote at offset %d", pos)
	}

	var b strings.Builder
	i := pos + 1
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text) && (text[i+1] == '"' || text[i+1] == '\\'):
			b.WriteByte(text[i+1])
			i += 2
		case c == '"' && i+1 < len(text) && text[i+1] == '"':
			b.WriteByte('"')
			i += 2
		case c == '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", pos, errors.Errorf("quoted field starting at offset %d has no closing quote", pos)
}

// extractBracketed reads "[...]" including both brackets.
func extractBracketed(text string, pos int) (string, int, error) {
	end := strings.IndexByte(text[pos:], ']')
	if end < 0 {
		return "", pos, errors.Errorf("bracketed field starting at offset %d has no closing ']'", pos)
	}
	end += pos + 1
	return text[pos:end], end, nil
}

// extractWord reads an unquoted field up to the next whitespace run, which
// is consumed.
func extractWord(text string, pos int) (string, int) {
	end := strings.IndexAny(text[pos:], " \t")
	if end < 0 {
		return text[pos:], len(text)
	}
	end += pos
	next := end
	for next < len(text) && isSpace(text[next]) {
		next++
	}
	return text[pos:end], next
}

// plainEnds returns the candidate end offsets of an unquoted field followed
// by sep. The first is the next occurrence of sep. When sep begins with
// whitespace and the text before an occurrence ends in a comma, the
// following occurrence is added too, so "a, b" lists can stay together.
func plainEnds(text string, pos int, sep string) ([]int, error) {
	j := strings.Index(text[pos:], sep)
	if j < 0 {
		return nil, errors.Errorf("separator %q not found after offset %d", sep, pos)
	}
	end := pos + j
	ends := []int{end}
	if !isSpace(sep[0]) {
		return ends, nil
	}
	for end > pos && text[end-1] == ',' {
		j := strings.Index(text[end+1:], sep)
		if j < 0 {
			break
		}
		end += 1 + j
		ends = append(ends, end)
	}
	return ends, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

// excerpt shortens s for error messages.
func excerpt(s string) string {
	const limit = 32
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

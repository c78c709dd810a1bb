package record

import (
	"strconv"
	"strings"

	"github.com/itchyny/timefmt-go"
	"github.com/pkg/errors"
)

// Codec selects how a directive's raw text becomes typed values. It is
// fixed per directive when a format is compiled.
type Codec int

const (
	CodecText Codec = iota + 1
	CodecInteger
	CodecTextList
	CodecTimestamp
	CodecRequest
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecText:
		return "text"
	case CodecInteger:
		return "integer"
	case CodecTextList:
		return "list"
	case CodecTimestamp:
		return "timestamp"
	case CodecRequest:
		return "request"
	default:
		return "unknown"
	}
}

// clfDateLayout is the strftime layout of the date part inside the brackets.
const clfDateLayout = "%d/%b/%Y:%H:%M:%S"

// Apply decodes raw with codec c and stores the result under fields in rec.
// Request codecs need three field names (method, path, protocol); every
// other codec uses the first name only.
func Apply(c Codec, fields []string, raw string, rec Record) error {
	if len(fields) == 0 {
		return errors.New("codec applied without a field name")
	}
	switch c {
	case CodecText:
		rec[fields[0]] = DecodeText(raw)
	case CodecInteger:
		v, err := DecodeInteger(raw)
		if err != nil {
			return err
		}
		rec[fields[0]] = v
	case CodecTextList:
		rec[fields[0]] = DecodeList(raw)
	case CodecTimestamp:
		v, err := DecodeTimestamp(raw)
		if err != nil {
			return err
		}
		rec[fields[0]] = v
	case CodecRequest:
		if len(fields) != 3 {
			return errors.Errorf("request codec needs 3 fields, got %d", len(fields))
		}
		method, path, protocol := SplitRequest(raw)
		rec[fields[0]] = TextValue(method)
		rec[fields[1]] = TextValue(path)
		rec[fields[2]] = TextValue(protocol)
	default:
		return errors.Errorf("unknown codec %d", int(c))
	}
	return nil
}

// DecodeText returns raw unchanged.
func DecodeText(raw string) Value {
	return TextValue(raw)
}

// DecodeInteger parses raw as a base-10 integer made only of ASCII digits.
func DecodeInteger(raw string) (Value, error) {
	if raw == "" {
		return Value{}, errors.New("empty integer field")
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return Value{}, errors.Errorf("non-digit %q in integer field %q", raw[i], raw)
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Value{}, errors.Wrapf(err, "integer field %q", raw)
	}
	return IntValue(n), nil
}

// DecodeList splits raw on commas and trims whitespace around each token.
// Order, duplicates and non-address tokens such as "unknown" are kept.
func DecodeList(raw string) Value {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		items = append(items, strings.TrimSpace(p))
	}
	return ListValue(items)
}

// DecodeTimestamp parses "[DD/Mon/YYYY:HH:MM:SS +ZZZZ]". The offset must be
// well formed but does not shift the returned fields.
func DecodeTimestamp(raw string) (Value, error) {
	if len(raw) < 2 || raw[0] != '[' || raw[len(raw)-1] != ']' {
		return Value{}, errors.Errorf("timestamp %q is not bracketed", raw)
	}
	date, offset, ok := strings.Cut(raw[1:len(raw)-1], " ")
	if !ok {
		return Value{}, errors.Errorf("timestamp %q has no zone offset", raw)
	}
	if !validDateShape(date) {
		return Value{}, errors.Errorf("timestamp %q does not match DD/Mon/YYYY:HH:MM:SS", raw)
	}
	if !validOffset(offset) {
		return Value{}, errors.Errorf("timestamp %q has malformed zone offset %q", raw, offset)
	}

	t, err := timefmt.Parse(date, clfDateLayout)
	if err != nil {
		return Value{}, errors.Wrapf(err, "timestamp %q", raw)
	}
	return TimeValue(Timestamp{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
		Offset: offset,
	}), nil
}

// validDateShape checks the fixed-width DD/Mon/YYYY:HH:MM:SS layout.
func validDateShape(s string) bool {
	const shape = "dd/Mmm/dddd:dd:dd:dd"
	if len(s) != len(shape) {
		return false
	}
	for i := 0; i < len(shape); i++ {
		c := s[i]
		switch shape[i] {
		case 'd':
			if c < '0' || c > '9' {
				return false
			}
		case 'M', 'm':
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
				return false
			}
		default:
			if c != shape[i] {
				return false
			}
		}
	}
	return true
}

func validOffset(s string) bool {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// SplitRequest decomposes an HTTP request line. The method runs to the
// first space, the protocol is the last token when it starts with "HTTP/",
// and the path is everything in between. Query strings stay in the path.
func SplitRequest(req string) (method, path, protocol string) {
	method, rest, ok := strings.Cut(req, " ")
	if !ok {
		return req, "", ""
	}
	if i := strings.LastIndexByte(rest, ' '); i >= 0 && strings.HasPrefix(rest[i+1:], "HTTP/") {
		return method, rest[:i], rest[i+1:]
	}
	if strings.HasPrefix(rest, "HTTP/") && !strings.Contains(rest, " ") {
		return method, "", rest
	}
	return method, rest, ""
}

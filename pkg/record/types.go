// Package record defines the structured output of matching one access-log
// line and the codecs that turn raw matched text into typed values.
package record

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind identifies which payload of a Value is populated.
type Kind int

const (
	KindText Kind = iota + 1
	KindInteger
	KindTextList
	KindTimestamp
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindTextList:
		return "list"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a single typed field value. Exactly one payload is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind
	Text string
	Int  int64
	List []string
	Time Timestamp
}

// TextValue wraps s as a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// IntValue wraps n as an integer value.
func IntValue(n int64) Value { return Value{Kind: KindInteger, Int: n} }

// ListValue wraps items as a text list value.
func ListValue(items []string) Value { return Value{Kind: KindTextList, List: items} }

// TimeValue wraps ts as a timestamp value.
func TimeValue(ts Timestamp) Value { return Value{Kind: KindTimestamp, Time: ts} }

// String renders the value for human-readable output.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindTextList:
		return strings.Join(v.List, ",")
	case KindTimestamp:
		return v.Time.String()
	default:
		return ""
	}
}

// MarshalJSON renders the natural JSON form of the payload.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindText:
		return json.Marshal(v.Text)
	case KindInteger:
		return json.Marshal(v.Int)
	case KindTextList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindTimestamp:
		return json.Marshal(v.Time.String())
	default:
		return []byte("null"), nil
	}
}

// Timestamp holds the wall-clock fields of a bracketed access-log time.
// Offset is the zone text as written (e.g. "-0500"); it is recognised but
// never applied to the other fields.
type Timestamp struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
	Offset string
}

// Time returns the wall-clock fields as a UTC time. The offset is ignored.
func (t Timestamp) Time() time.Time {
	return time.Date(t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second, 0, time.UTC)
}

// Instant returns the moment the timestamp denotes, with Offset applied.
// An offset that is not sign plus four digits is treated as UTC. The
// stored fields are not changed.
func (t Timestamp) Instant() time.Time {
	return time.Date(t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second, 0, t.zone())
}

func (t Timestamp) zone() *time.Location {
	if !validOffset(t.Offset) {
		return time.UTC
	}
	hh := int(t.Offset[1]-'0')*10 + int(t.Offset[2]-'0')
	mm := int(t.Offset[3]-'0')*10 + int(t.Offset[4]-'0')
	secs := hh*3600 + mm*60
	if t.Offset[0] == '-' {
		secs = -secs
	}
	return time.FixedZone(t.Offset, secs)
}

// String formats the wall-clock fields as 2006-01-02T15:04:05.
func (t Timestamp) String() string {
	return t.Time().Format("2006-01-02T15:04:05")
}

// Record maps field names to typed values. Its key set is exactly the set
// of fields declared by the plan that produced it.
type Record map[string]Value

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Text returns the text payload of key.
func (r Record) Text(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v.Kind != KindText {
		return "", false
	}
	return v.Text, true
}

// Int returns the integer payload of key.
func (r Record) Int(key string) (int64, bool) {
	v, ok := r[key]
	if !ok || v.Kind != KindInteger {
		return 0, false
	}
	return v.Int, true
}

// List returns the list payload of key.
func (r Record) List(key string) ([]string, bool) {
	v, ok := r[key]
	if !ok || v.Kind != KindTextList {
		return nil, false
	}
	return v.List, true
}

// Time returns the timestamp payload of key.
func (r Record) Time(key string) (Timestamp, bool) {
	v, ok := r[key]
	if !ok || v.Kind != KindTimestamp {
		return Timestamp{}, false
	}
	return v.Time, true
}

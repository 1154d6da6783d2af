// Defines the Value cell type and its conversions.

package csvdb

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	// KindMissing is the absent marker. It is the zero value.
	KindMissing Kind = iota
	// KindInt holds an int64.
	KindInt
	// KindFloat holds a float64 that is never NaN.
	KindFloat
	// KindString holds text, including the empty string.
	KindString
	// KindTime holds a calendar date or timestamp.
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single table cell.
//
// The zero Value is Missing, which is distinct from String("").
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Missing is the absent cell marker.
var Missing = Value{}

// Int returns an integer Value.
func Int(v int64) Value {
	return Value{kind: KindInt, i: v}
}

// Float returns a floating point Value. NaN is normalized to Missing.
func Float(v float64) Value {
	if math.IsNaN(v) {
		return Missing
	}
	return Value{kind: KindFloat, f: v}
}

// String returns a text Value.
func String(v string) Value {
	return Value{kind: KindString, s: v}
}

// Time returns a date/time Value. The zero time is normalized to Missing.
func Time(v time.Time) Value {
	if v.IsZero() {
		return Missing
	}
	return Value{kind: KindTime, t: v}
}

// Kind returns the kind of value held.
func (v Value) Kind() Kind {
	return v.kind
}

// IsMissing reports whether the cell is absent.
func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// IsNumeric reports whether the cell holds an int or a float.
func (v Value) IsNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// Int returns the integer held, or false if the value is not an int.
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == KindInt
}

// Number returns the numeric value held, or false if the value is not numeric.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Text returns the string held, or false if the value is not a string.
func (v Value) Text() (string, bool) {
	return v.s, v.kind == KindString
}

// TimeValue returns the time held, or false if the value is not a time.
func (v Value) TimeValue() (time.Time, bool) {
	return v.t, v.kind == KindTime
}

// String renders the cell the way it is written to the CSV file. Missing
// renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindTime:
		return formatTime(v.t)
	default:
		return ""
	}
}

// Any returns the cell as a plain Go value for rendering: "" for Missing,
// int64, float64, string, or the formatted time.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindTime:
		return formatTime(v.t)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler. Missing is encoded as "".
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat && math.IsInf(v.f, 0) {
		return json.Marshal(formatFloat(v.f))
	}
	return json.Marshal(v.Any())
}

// FromAny converts a decoded JSON, form or Go value into a cell.
//
// nil becomes Missing. Strings are kept verbatim; type inference only happens
// when the table is decoded from disk.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Missing
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return String(strconv.FormatBool(t))
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint32:
		return Int(int64(t))
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		if f, err := t.Float64(); err == nil {
			return Float(f)
		}
		return String(t.String())
	case time.Time:
		return Time(t)
	case fmt.Stringer:
		return String(t.String())
	default:
		return String(fmt.Sprint(t))
	}
}

// Equal reports whether v and o hold the same kind and value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// Compare orders two non-missing values: numbers before times before strings.
// Missing compares greater than everything so that it sorts last.
func Compare(a, b Value) int {
	ra, rb := rank(a.kind), rank(b.kind)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		if a.kind == KindInt && b.kind == KindInt {
			switch {
			case a.i < b.i:
				return -1
			case a.i > b.i:
				return 1
			}
			return 0
		}
		fa, _ := a.Number()
		fb, _ := b.Number()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 1:
		return a.t.Compare(b.t)
	case 2:
		return strings.Compare(a.s, b.s)
	}
	return 0
}

func rank(k Kind) int {
	switch k {
	case KindInt, KindFloat:
		return 0
	case KindTime:
		return 1
	case KindString:
		return 2
	default:
		return 3
	}
}

// key writes a canonical, unambiguous encoding of v used for duplicate
// detection. Int and Float holding the same number share a key.
func (v Value) key(b *strings.Builder) {
	switch v.kind {
	case KindInt:
		b.WriteString("n")
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b.WriteString("n")
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<53 {
			b.WriteString(strconv.FormatInt(int64(v.f), 10))
		} else {
			b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
		}
	case KindString:
		b.WriteString("s")
		b.WriteString(strconv.Itoa(len(v.s)))
		b.WriteByte(':')
		b.WriteString(v.s)
	case KindTime:
		b.WriteString("t")
		b.WriteString(v.t.UTC().Format(time.RFC3339Nano))
	default:
		b.WriteString("m")
	}
	b.WriteByte(0)
}

// formatFloat always keeps a decimal point or exponent so the column is
// inferred as float again on the next load.
func formatFloat(f float64) string {
	var s string
	if a := math.Abs(f); a != 0 && (a >= 1e16 || a < 1e-4) {
		s = strconv.FormatFloat(f, 'g', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

// parseInt parses a decimal integer cell.
func parseInt(s string) (int64, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return i, err == nil
}

// parseNumber parses a decimal floating point cell. Hexadecimal and
// underscore forms accepted by strconv are rejected, and so are NaN and Inf.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "_xXpP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, !math.IsNaN(f) && !math.IsInf(f, 0)
}

package csvdb

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Column coercion reinterprets every cell of a column as a target kind.
//
// Lenient kinds never fail as a whole; a cell that does not convert becomes
// Missing:
//
//	int       numbers and numeric text, fractional values truncated
//	float     numbers and numeric text
//	datetime  dates and date text, month-first for ambiguous numeric dates
//	date      as datetime, truncated to midnight
//
// Strict kinds either convert every cell or fail without touching the column:
//
//	int64, int32   whole numbers; Missing is an error
//	Int64          whole numbers; Missing is kept
//	float64        numbers and numeric text
//	float32        as float64, rounded to single precision
//	bool           true/false/1/0 rendered "True"/"False"; Missing is an error
//	boolean        as bool; Missing is kept
//	str, string, object, text, category
//	               the cell's CSV rendering

// ErrUnknownKind is returned for a coercion kind that is not supported.
var ErrUnknownKind = errors.New("unknown coercion kind")

// ErrCast is returned when a strict coercion fails on at least one cell.
var ErrCast = errors.New("cannot cast value")

// CoerceValues converts vals to kind and returns the new cells. vals is not
// modified.
func CoerceValues(vals []Value, kind string) ([]Value, error) {
	var conv func(Value) (Value, error)
	switch kind {
	case "int":
		conv = lenient(toInt)
	case "float":
		conv = lenient(toFloat)
	case "datetime":
		conv = lenient(toDatetime)
	case "date":
		conv = lenient(toDate)
	case "int64":
		conv = strict(wholeInt(math.MinInt64, math.MaxInt64), false)
	case "int32":
		conv = strict(wholeInt(math.MinInt32, math.MaxInt32), false)
	case "Int64":
		conv = strict(wholeInt(math.MinInt64, math.MaxInt64), true)
	case "float64":
		conv = strict(toFloat, true)
	case "float32":
		conv = strict(toFloat32, true)
	case "bool":
		conv = strict(toBool, false)
	case "boolean":
		conv = strict(toBool, true)
	case "str", "string", "object", "text", "category":
		conv = strict(toText, true)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	out := make([]Value, len(vals))
	for i, v := range vals {
		c, err := conv(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// Coerce replaces the named column with its coercion to kind. On error the
// table is unchanged.
func (t *Table) Coerce(name, kind string) error {
	if !t.HasColumn(name) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	vals, err := CoerceValues(t.Column(name), kind)
	if err != nil {
		return fmt.Errorf("coerce %q to %s: %w", name, kind, err)
	}
	return t.SetColumn(name, vals)
}

type converter func(Value) (Value, bool)

func lenient(c converter) func(Value) (Value, error) {
	return func(v Value) (Value, error) {
		if v.IsMissing() {
			return Missing, nil
		}
		if out, ok := c(v); ok {
			return out, nil
		}
		return Missing, nil
	}
}

func strict(c converter, keepMissing bool) func(Value) (Value, error) {
	return func(v Value) (Value, error) {
		if v.IsMissing() {
			if keepMissing {
				return Missing, nil
			}
			return Missing, fmt.Errorf("%w: missing value", ErrCast)
		}
		if out, ok := c(v); ok {
			return out, nil
		}
		return Missing, fmt.Errorf("%w: %q", ErrCast, v.String())
	}
}

// toInt truncates toward zero.
func toInt(v Value) (Value, bool) {
	switch v.kind {
	case KindInt:
		return v, true
	case KindFloat:
		return truncate(v.f)
	case KindString:
		if i, ok := parseInt(v.s); ok {
			return Int(i), true
		}
		if f, ok := parseNumber(v.s); ok {
			return truncate(f)
		}
	}
	return Missing, false
}

func truncate(f float64) (Value, bool) {
	if math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return Missing, false
	}
	return Int(int64(f)), true
}

func wholeInt(lo, hi int64) converter {
	return func(v Value) (Value, bool) {
		var i int64
		switch v.kind {
		case KindInt:
			i = v.i
		case KindFloat:
			if v.f != math.Trunc(v.f) || math.IsInf(v.f, 0) || v.f >= math.MaxInt64 || v.f < math.MinInt64 {
				return Missing, false
			}
			i = int64(v.f)
		case KindString:
			n, ok := parseInt(v.s)
			if !ok {
				return Missing, false
			}
			i = n
		default:
			return Missing, false
		}
		if i < lo || i > hi {
			return Missing, false
		}
		return Int(i), true
	}
}

func toFloat(v Value) (Value, bool) {
	switch v.kind {
	case KindInt:
		return Float(float64(v.i)), true
	case KindFloat:
		return v, true
	case KindString:
		if f, ok := parseNumber(v.s); ok {
			return Float(f), true
		}
	}
	return Missing, false
}

func toFloat32(v Value) (Value, bool) {
	f, ok := toFloat(v)
	if !ok {
		return Missing, false
	}
	return Float(float64(float32(f.f))), true
}

func toDatetime(v Value) (Value, bool) {
	t, ok := DateValue(v, false)
	if !ok {
		return Missing, false
	}
	return Time(t), true
}

func toDate(v Value) (Value, bool) {
	t, ok := DateValue(v, false)
	if !ok {
		return Missing, false
	}
	y, m, d := t.Date()
	return Time(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)), true
}

func toBool(v Value) (Value, bool) {
	var b bool
	switch v.kind {
	case KindInt:
		if v.i != 0 && v.i != 1 {
			return Missing, false
		}
		b = v.i == 1
	case KindFloat:
		if v.f != 0 && v.f != 1 {
			return Missing, false
		}
		b = v.f == 1
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true", "1", "yes":
			b = true
		case "false", "0", "no":
		default:
			return Missing, false
		}
	default:
		return Missing, false
	}
	if b {
		return String("True"), true
	}
	return String("False"), true
}

func toText(v Value) (Value, bool) {
	return String(v.String()), true
}

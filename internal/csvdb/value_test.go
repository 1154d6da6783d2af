package csvdb

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"missing", Missing, ""},
		{"empty string", String(""), ""},
		{"int", Int(-42), "-42"},
		{"whole float", Float(100), "100.0"},
		{"fraction", Float(3.25), "3.25"},
		{"large float", Float(1e20), "1e+20"},
		{"small float", Float(1e-7), "1e-07"},
		{"date", Time(time.Date(2003, 2, 24, 0, 0, 0, 0, time.UTC)), "2003-02-24"},
		{"datetime", Time(time.Date(2003, 2, 24, 13, 5, 0, 0, time.UTC)), "2003-02-24 13:05:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValue_MissingIsNotEmpty(t *testing.T) {
	if !Missing.IsMissing() {
		t.Fatal("Missing.IsMissing() = false")
	}
	if String("").IsMissing() {
		t.Error("String(\"\") reported as missing")
	}
	if !Float(math.NaN()).IsMissing() {
		t.Error("NaN float should normalize to Missing")
	}
	if !Time(time.Time{}).IsMissing() {
		t.Error("zero time should normalize to Missing")
	}
	if Missing.Equal(String("")) {
		t.Error("Missing must not equal the empty string")
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Missing, `""`},
		{Int(7), `7`},
		{Float(1.5), `1.5`},
		{String("Cars"), `"Cars"`},
		{Float(math.Inf(1)), `"+Inf"`},
		{Time(time.Date(2004, 1, 2, 0, 0, 0, 0, time.UTC)), `"2004-01-02"`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.v)
		if err != nil {
			t.Fatalf("Marshal(%v) failed: %v", tt.v, err)
		}
		if string(b) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.v, b, tt.want)
		}
	}
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Missing},
		{"string", "x", String("x")},
		{"empty string", "", String("")},
		{"float64", 2.5, Float(2.5)},
		{"int", 3, Int(3)},
		{"json int", json.Number("12"), Int(12)},
		{"json float", json.Number("1.25"), Float(1.25)},
		{"bool", true, String("true")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromAny(tt.in); !got.Equal(tt.want) {
				t.Errorf("FromAny(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	ordered := []Value{
		Int(-1),
		Float(0.5),
		Int(2),
		Time(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)),
		String("a"),
		String("b"),
		Missing,
	}
	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j])
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			if got != want {
				t.Errorf("Compare(%v, %v) = %d, want %d", ordered[i], ordered[j], got, want)
			}
		}
	}
}

func TestValue_keyNumbersShare(t *testing.T) {
	key := func(v Value) string {
		var b strings.Builder
		v.key(&b)
		return b.String()
	}
	if key(Int(10)) != key(Float(10)) {
		t.Error("Int(10) and Float(10) should share a duplicate key")
	}
	if key(String("10")) == key(Int(10)) {
		t.Error("String(\"10\") must not collide with Int(10)")
	}
	if key(Missing) == key(String("")) {
		t.Error("Missing must not collide with the empty string")
	}
}

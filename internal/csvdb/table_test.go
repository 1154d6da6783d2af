package csvdb

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func salesTable() *Table {
	t := NewTable("id", "PRODUCTLINE", "SALES")
	t.Append(Fields{{"id", Int(1)}, {"PRODUCTLINE", String("Cars")}, {"SALES", Int(100)}})
	t.Append(Fields{{"id", Int(2)}, {"PRODUCTLINE", String("Cars")}, {"SALES", Int(50)}})
	t.Append(Fields{{"id", Int(3)}, {"PRODUCTLINE", String("Boats")}, {"SALES", Int(30)}})
	return t
}

func TestTable_AppendGrowsColumns(t *testing.T) {
	tbl := salesTable()
	tbl.Append(Fields{{"id", Int(4)}, {"COLOR", String("red")}})
	if diff := cmp.Diff([]string{"id", "PRODUCTLINE", "SALES", "COLOR"}, tbl.Columns()); diff != "" {
		t.Errorf("Columns() mismatch (-want +got):\n%s", diff)
	}
	want := []Value{Missing, Missing, Missing, String("red")}
	if diff := cmp.Diff(want, tbl.Column("COLOR")); diff != "" {
		t.Errorf("COLOR mismatch (-want +got):\n%s", diff)
	}
	r := tbl.Render(tbl.Rows()[0])
	if got := r.Get("COLOR"); got != "" {
		t.Errorf("rendered missing cell = %#v, want \"\"", got)
	}
}

func TestTable_Type(t *testing.T) {
	tbl := NewTable("a")
	if got := tbl.Type("a"); got != TypeEmpty {
		t.Errorf("empty column type = %s", got)
	}
	tbl.Append(Fields{{"a", Int(1)}})
	if got := tbl.Type("a"); got != TypeInt {
		t.Errorf("int column type = %s", got)
	}
	tbl.Append(Fields{{"a", Float(1.5)}})
	if got := tbl.Type("a"); got != TypeFloat {
		t.Errorf("mixed numeric column type = %s", got)
	}
	tbl.Append(Fields{{"a", String("x")}})
	if got := tbl.Type("a"); got != TypeText {
		t.Errorf("mixed column type = %s", got)
	}
}

func TestTable_SortBy(t *testing.T) {
	tbl := salesTable()
	tbl.Append(Fields{{"id", Int(4)}, {"PRODUCTLINE", String("Planes")}})
	ids := func() []Value { return tbl.Column("id") }

	tbl.SortBy("SALES", true)
	if diff := cmp.Diff([]Value{Int(3), Int(2), Int(1), Int(4)}, ids()); diff != "" {
		t.Errorf("ascending mismatch (-want +got):\n%s", diff)
	}
	tbl.SortBy("SALES", false)
	if diff := cmp.Diff([]Value{Int(1), Int(2), Int(3), Int(4)}, ids()); diff != "" {
		t.Errorf("descending mismatch (-want +got):\n%s", diff)
	}
	tbl.SortBy("PRODUCTLINE", true)
	if diff := cmp.Diff([]Value{Int(3), Int(1), Int(2), Int(4)}, ids()); diff != "" {
		t.Errorf("stable string sort mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Duplicated(t *testing.T) {
	tbl := salesTable()
	tbl.Append(Fields{{"id", Int(4)}, {"PRODUCTLINE", String("Cars")}, {"SALES", Float(100)}})

	got, err := tbl.Duplicated([]string{"PRODUCTLINE"}, true)
	if err != nil {
		t.Fatalf("Duplicated failed: %v", err)
	}
	if diff := cmp.Diff([]bool{false, true, false, true}, got); diff != "" {
		t.Errorf("keep first mismatch (-want +got):\n%s", diff)
	}
	got, err = tbl.Duplicated([]string{"PRODUCTLINE", "SALES"}, false)
	if err != nil {
		t.Fatalf("Duplicated failed: %v", err)
	}
	if diff := cmp.Diff([]bool{true, false, false, true}, got); diff != "" {
		t.Errorf("all occurrences mismatch (-want +got):\n%s", diff)
	}
	got, err = tbl.Duplicated(nil, true)
	if err != nil {
		t.Fatalf("Duplicated failed: %v", err)
	}
	if diff := cmp.Diff([]bool{false, false, false, false}, got); diff != "" {
		t.Errorf("all columns mismatch (-want +got):\n%s", diff)
	}
	if _, err := tbl.Duplicated([]string{"NOPE"}, true); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("unknown subset column: got %v, want ErrUnknownColumn", err)
	}
}

func TestTable_EnsureID(t *testing.T) {
	t.Run("synthesized", func(t *testing.T) {
		tbl := NewTable("name")
		tbl.Append(Fields{{"name", String("a")}})
		tbl.Append(Fields{{"name", String("b")}})
		tbl.EnsureID()
		if diff := cmp.Diff([]string{"id", "name"}, tbl.Columns()); diff != "" {
			t.Errorf("Columns() mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]Value{Int(0), Int(1)}, tbl.Column("id")); diff != "" {
			t.Errorf("ids mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("whole floats", func(t *testing.T) {
		tbl := NewTable("id")
		tbl.Append(Fields{{"id", Float(1)}})
		tbl.Append(Fields{{"id", Float(2)}})
		tbl.EnsureID()
		if got := tbl.Type("id"); got != TypeInt {
			t.Errorf("id type = %s, want int", got)
		}
	})
	t.Run("lossy floats untouched", func(t *testing.T) {
		tbl := NewTable("id")
		tbl.Append(Fields{{"id", Float(1.5)}})
		tbl.EnsureID()
		if diff := cmp.Diff([]Value{Float(1.5)}, tbl.Column("id")); diff != "" {
			t.Errorf("ids mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestRenderedRow_MarshalJSON(t *testing.T) {
	tbl := salesTable()
	tbl.AddColumn("NOTE")
	b, err := json.Marshal(tbl.Render(tbl.Rows()[2]))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"id":3,"PRODUCTLINE":"Boats","SALES":30,"NOTE":""}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestTable_Clone(t *testing.T) {
	tbl := salesTable()
	c := tbl.Clone()
	c.Set(0, "SALES", Int(1))
	if v := tbl.Rows()[0]["SALES"]; !v.Equal(Int(100)) {
		t.Errorf("Clone shares rows with the original: %v", v)
	}
}

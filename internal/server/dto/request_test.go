package dto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/salesdb/internal/csvdb"
)

func errCode(t *testing.T, err error) ErrorCode {
	t.Helper()
	var ews ErrorWithStatus
	if !errors.As(err, &ews) {
		t.Fatalf("expected an ErrorWithStatus, got %v", err)
	}
	return ews.Code()
}

func TestRecord(t *testing.T) {
	t.Run("keeps key order and drops nulls", func(t *testing.T) {
		var r Record
		in := `{"ZETA":"z","ORDERNUMBER":10107,"PRICEEACH":"95.7","NOTE":null,"ALPHA":1.5,"id":99}`
		if err := json.Unmarshal([]byte(in), &r); err != nil {
			t.Fatal(err)
		}
		got, err := r.Fields()
		if err != nil {
			t.Fatal(err)
		}
		want := csvdb.Fields{
			{Name: "ZETA", Value: csvdb.String("z")},
			{Name: "ORDERNUMBER", Value: csvdb.Int(10107)},
			{Name: "PRICEEACH", Value: csvdb.Float(95.7)},
			{Name: "ALPHA", Value: csvdb.Float(1.5)},
			{Name: "id", Value: csvdb.Int(99)},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("type errors", func(t *testing.T) {
		tests := []string{
			`{"ORDERNUMBER":"abc"}`,
			`{"ORDERNUMBER":1.5}`,
			`{"SALES":"lots"}`,
			`{"STATUS":true}`,
			`{"EXTRA":{"nested":1}}`,
		}
		for _, in := range tests {
			var r Record
			if err := json.Unmarshal([]byte(in), &r); err != nil {
				t.Fatal(err)
			}
			_, err := r.Fields()
			if err == nil {
				t.Errorf("%s: expected an error", in)
				continue
			}
			if c := errCode(t, err); c != ErrorCodeInvalidFormat {
				t.Errorf("%s: code = %s", in, c)
			}
		}
	})
	t.Run("not an object", func(t *testing.T) {
		var r Record
		if err := json.Unmarshal([]byte(`[1,2]`), &r); err == nil {
			t.Error("expected an error for an array body")
		}
	})
}

func TestAddRowRequest_Validate(t *testing.T) {
	var r AddRowRequest
	if err := r.Validate(); err == nil {
		t.Error("empty body should be rejected")
	}
	if err := json.Unmarshal([]byte(`{"QUANTITYORDERED":"30"}`), &r); err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestAddValidatedRowRequest(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want csvdb.Fields
		code ErrorCode
	}{
		{
			name: "day first date",
			in:   `{"ORDERDATE":"24/02/2003","SALES":10}`,
			want: csvdb.Fields{{Name: "ORDERDATE", Value: csvdb.String("2003-02-24")}, {Name: "SALES", Value: csvdb.Float(10)}},
		},
		{
			name: "iso date",
			in:   `{"ORDERDATE":"2003-5-7"}`,
			want: csvdb.Fields{{Name: "ORDERDATE", Value: csvdb.String("2003-05-07")}},
		},
		{
			name: "month first fallback",
			in:   `{"ORDERDATE":"12/31/2003"}`,
			want: csvdb.Fields{{Name: "ORDERDATE", Value: csvdb.String("2003-12-31")}},
		},
		{
			name: "empty strings are ignored",
			in:   `{"ORDERDATE":"","MSRP":"","STATUS":"Shipped"}`,
			want: csvdb.Fields{{Name: "STATUS", Value: csvdb.String("Shipped")}},
		},
		{name: "negative price", in: `{"PRICEEACH":-1}`, code: ErrorCodeValidationFailed},
		{name: "non numeric sales", in: `{"SALES":"x"}`, code: ErrorCodeInvalidFormat},
		{name: "bad date", in: `{"ORDERDATE":"yesterday"}`, code: ErrorCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r AddValidatedRowRequest
			if err := json.Unmarshal([]byte(tt.in), &r); err != nil {
				t.Fatal(err)
			}
			err := r.Validate()
			if tt.code != "" {
				if err == nil {
					t.Fatal("expected an error")
				}
				if c := errCode(t, err); c != tt.code {
					t.Errorf("code = %s, want %s", c, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			got, err := r.ValidatedFields()
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListRowsRequest(t *testing.T) {
	zero, big, five := 0, 101, 5
	no := false
	tests := []struct {
		name  string
		req   ListRowsRequest
		valid bool
		limit int
		asc   bool
	}{
		{"defaults", ListRowsRequest{}, true, 10, true},
		{"bottom", ListRowsRequest{Position: "bottom", Limit: &five, Ascending: &no}, true, 5, false},
		{"bad position", ListRowsRequest{Position: "middle"}, false, 0, false},
		{"zero limit", ListRowsRequest{Limit: &zero}, false, 0, false},
		{"limit too big", ListRowsRequest{Limit: &big}, false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err == nil) != tt.valid {
				t.Fatalf("Validate() = %v, want valid=%v", err, tt.valid)
			}
			if !tt.valid {
				return
			}
			if got := tt.req.RowLimit(); got != tt.limit {
				t.Errorf("RowLimit() = %d, want %d", got, tt.limit)
			}
			if got := tt.req.IsAscending(); got != tt.asc {
				t.Errorf("IsAscending() = %v, want %v", got, tt.asc)
			}
		})
	}
}

func TestCleaningRequests(t *testing.T) {
	if got := (&DropDuplicatesRequest{Columns: "ORDERNUMBER, PRODUCTCODE,,"}).Subset(); !cmp.Equal(got, []string{"ORDERNUMBER", "PRODUCTCODE"}) {
		t.Errorf("Subset() = %q", got)
	}
	if got := (&DuplicatesRequest{}).Subset(); got != nil {
		t.Errorf("Subset() = %q, want nil", got)
	}
	if err := (&FillMissingRequest{Value: "0"}).Validate(); err == nil || errCode(t, err) != ErrorCodeMissingField {
		t.Errorf("missing column: %v", err)
	}
	if err := (&FillMissingRequest{Column: "STATUS"}).Validate(); err == nil || errCode(t, err) != ErrorCodeMissingField {
		t.Errorf("missing value: %v", err)
	}
	if err := (&FillMissingRequest{Column: "STATUS", Value: ""}).Validate(); err != nil {
		t.Errorf("empty value should be accepted: %v", err)
	}
	if got := (&FillMissingRequest{Column: "N", Value: json.Number("3")}).FillValue(); !got.Equal(csvdb.Int(3)) {
		t.Errorf("FillValue() = %v", got)
	}
	if err := (&CoerceRequest{Column: "SALES"}).Validate(); err == nil {
		t.Error("missing dtype should be rejected")
	}
}

func TestSalesOverTimeRequest(t *testing.T) {
	for in, want := range map[string]csvdb.Freq{"": csvdb.FreqMonth, "D": csvdb.FreqDay, "W": csvdb.FreqWeek, "Y": csvdb.FreqYear} {
		r := SalesOverTimeRequest{Freq: in}
		if err := r.Validate(); err != nil {
			t.Errorf("Validate(%q) = %v", in, err)
		}
		if got := r.Frequency(); got != want {
			t.Errorf("Frequency(%q) = %q, want %q", in, got, want)
		}
	}
	for _, in := range []string{"Q", "month", "d"} {
		if err := (&SalesOverTimeRequest{Freq: in}).Validate(); err == nil {
			t.Errorf("Validate(%q) should fail", in)
		}
	}
}

func TestRecordSchema(t *testing.T) {
	s := RecordSchema()
	if s.Title != "Sales record" {
		t.Errorf("Title = %q", s.Title)
	}
	types := fieldTypes()
	for name, want := range map[string]string{"ORDERNUMBER": "integer", "PRICEEACH": "number", "ORDERDATE": "string", "DAYS_SINCE_LASTORDER": "integer"} {
		if got := types[name]; got != want {
			t.Errorf("type of %s = %q, want %q", name, got, want)
		}
	}
	if len(s.Required) != 0 {
		t.Errorf("Required = %v, want none", s.Required)
	}
}

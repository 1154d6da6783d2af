// Free form record bodies and the schema of the well known sales columns.

package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/maruel/salesdb/internal/csvdb"
)

// SalesRecord documents the well known columns of a sales record. A Record
// may carry any other column; only these are type checked.
type SalesRecord struct {
	OrderNumber        *int64   `json:"ORDERNUMBER,omitempty" jsonschema:"description=Order number"`
	QuantityOrdered    *int64   `json:"QUANTITYORDERED,omitempty" jsonschema:"description=Units ordered"`
	PriceEach          *float64 `json:"PRICEEACH,omitempty" jsonschema:"description=Unit price"`
	OrderLineNumber    *int64   `json:"ORDERLINENUMBER,omitempty" jsonschema:"description=Line within the order"`
	Sales              *float64 `json:"SALES,omitempty" jsonschema:"description=Line total"`
	OrderDate          *string  `json:"ORDERDATE,omitempty" jsonschema:"description=Order date"`
	DaysSinceLastOrder *int64   `json:"DAYS_SINCE_LASTORDER,omitempty" jsonschema:"description=Days since the customer's previous order"`
	Status             *string  `json:"STATUS,omitempty" jsonschema:"description=Order status"`
	ProductLine        *string  `json:"PRODUCTLINE,omitempty" jsonschema:"description=Product line used by the sales chart"`
	MSRP               *float64 `json:"MSRP,omitempty" jsonschema:"description=Manufacturer suggested retail price"`
	ProductCode        *string  `json:"PRODUCTCODE,omitempty" jsonschema:"description=Product code"`
	CustomerName       *string  `json:"CUSTOMERNAME,omitempty" jsonschema:"description=Customer name"`
	Phone              *string  `json:"PHONE,omitempty" jsonschema:"description=Customer phone"`
	AddressLine1       *string  `json:"ADDRESSLINE1,omitempty" jsonschema:"description=Street address"`
	City               *string  `json:"CITY,omitempty" jsonschema:"description=City"`
	PostalCode         *string  `json:"POSTALCODE,omitempty" jsonschema:"description=Postal code"`
	Country            *string  `json:"COUNTRY,omitempty" jsonschema:"description=Country"`
	ContactLastName    *string  `json:"CONTACTLASTNAME,omitempty" jsonschema:"description=Contact last name"`
	ContactFirstName   *string  `json:"CONTACTFIRSTNAME,omitempty" jsonschema:"description=Contact first name"`
	DealSize           *string  `json:"DEALSIZE,omitempty" jsonschema:"description=Deal size bucket"`
}

// RecordSchema returns the JSON schema of SalesRecord. Additional properties
// are allowed.
func RecordSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true, AllowAdditionalProperties: true}
	s := r.Reflect(&SalesRecord{})
	s.Title = "Sales record"
	return s
}

// fieldTypes maps each well known column to its JSON schema type.
var fieldTypes = sync.OnceValue(func() map[string]string {
	s := RecordSchema()
	out := make(map[string]string, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value.Type
	}
	return out
})

// WellKnownColumns returns the columns of SalesRecord in declaration order.
var WellKnownColumns = sync.OnceValue(func() []string {
	s := RecordSchema()
	out := make([]string, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
})

// Record is a JSON object of column values. Keys keep the order in which
// they were sent so new columns are registered in that order.
type Record struct {
	names  []string
	values map[string]any
}

// NewRecord returns a record with the given names, in order.
func NewRecord(names []string, values map[string]any) Record {
	return Record{names: names, values: values}
}

// UnmarshalJSON decodes a JSON object, keeping numbers as json.Number.
func (r *Record) UnmarshalJSON(b []byte) error {
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	tok, err := d.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return errors.New("record must be a JSON object")
	}
	r.names = nil
	r.values = make(map[string]any)
	for d.More() {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var v any
		if err := d.Decode(&v); err != nil {
			return err
		}
		if _, ok := r.values[name]; !ok {
			r.names = append(r.names, name)
		}
		r.values[name] = v
	}
	_, err = d.Token()
	return err
}

// IsSet reports whether the body was a JSON object.
func (r *Record) IsSet() bool {
	return r.values != nil
}

// Get returns the raw value of a column.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Fields converts the record to cells. Null values are dropped. Well known
// columns are converted to their declared type.
func (r *Record) Fields() (csvdb.Fields, error) {
	types := fieldTypes()
	out := make(csvdb.Fields, 0, len(r.names))
	for _, name := range r.names {
		x := r.values[name]
		if x == nil {
			continue
		}
		v, err := convertField(name, types[name], x)
		if err != nil {
			return nil, err
		}
		out = append(out, csvdb.Field{Name: name, Value: v})
	}
	return out, nil
}

func convertField(name, typ string, x any) (csvdb.Value, error) {
	switch x.(type) {
	case map[string]any, []any:
		return csvdb.Missing, InvalidFormat(name, "must be a scalar")
	}
	switch typ {
	case "integer":
		if i, ok := toInt(x); ok {
			return csvdb.Int(i), nil
		}
		return csvdb.Missing, InvalidFormat(name, "must be an integer")
	case "number":
		if f, ok := toFloat(x); ok {
			return csvdb.Float(f), nil
		}
		return csvdb.Missing, InvalidFormat(name, "must be a number")
	case "string":
		switch t := x.(type) {
		case string:
			return csvdb.String(t), nil
		case json.Number:
			return csvdb.String(t.String()), nil
		}
		return csvdb.Missing, InvalidFormat(name, "must be a string")
	}
	return csvdb.FromAny(x), nil
}

func toInt(x any) (int64, bool) {
	var s string
	switch t := x.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	case int64:
		return t, true
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

func toFloat(x any) (float64, bool) {
	var s string
	switch t := x.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// orderDateLayouts are the accepted ORDERDATE spellings, in priority order.
var orderDateLayouts = []string{"2/1/2006", "2006-1-2", "1/2/2006"}

// normalizeOrderDate parses s with orderDateLayouts and formats it as
// YYYY-MM-DD.
func normalizeOrderDate(s string) (string, error) {
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	return "", fmt.Errorf("%q is not a d/m/Y, Y-m-d or m/d/Y date", s)
}

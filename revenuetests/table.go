package revenuetests

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const dateLayout = "2006-01-02"

// Table is a step data table: a header row and string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// TableFromGherkin converts a godog data table, taking its first row as the header.
func TableFromGherkin(t *godog.Table) Table {
	var ret Table
	if t == nil {
		return ret
	}
	for i, row := range t.Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = strings.TrimSpace(c.Value)
		}
		if i == 0 {
			ret.Header = cells
		} else {
			ret.Rows = append(ret.Rows, cells)
		}
	}
	return ret
}

// FieldTable builds a Field | Value table from alternating field names and values.
func FieldTable(fieldsAndValues ...string) Table {
	if len(fieldsAndValues)%2 != 0 {
		panic("FieldTable needs an even number of arguments")
	}
	t := Table{Header: []string{"Field", "Value"}}
	for i := 0; i < len(fieldsAndValues); i += 2 {
		t.Rows = append(t.Rows, []string{fieldsAndValues[i], fieldsAndValues[i+1]})
	}
	return t
}

// Records returns each row keyed by header name.
func (t Table) Records() []map[string]string {
	ret := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		ret = append(ret, rec)
	}
	return ret
}

// Payload is a request body under construction.
type Payload map[string]ldvalue.Value

// Value returns the payload as a JSON object. Field order in its JSON form is unspecified.
func (p Payload) Value() ldvalue.Value {
	b := ldvalue.ObjectBuild()
	for k, v := range p {
		b.Set(k, v)
	}
	return b.Build()
}

// Copy returns a shallow copy.
func (p Payload) Copy() Payload {
	ret := make(Payload, len(p))
	for k, v := range p {
		ret[k] = v
	}
	return ret
}

// BuildPayload turns a Field | Value table into a payload, coercing each value with
// CoerceValue.
func BuildPayload(t Table, now time.Time) (Payload, error) {
	ret := make(Payload)
	for _, rec := range t.Records() {
		field := rec["Field"]
		if field == "" {
			return nil, fmt.Errorf("table row has no Field: %v", rec)
		}
		v, err := CoerceValue(field, rec["Value"], now)
		if err != nil {
			return nil, err
		}
		ret[field] = v
	}
	return ret, nil
}

// CoerceValue converts a table cell to the JSON type the API expects for field:
//   - fields ending in "Rate" are numbers
//   - "year" and "level" are integers
//   - "today" and "tomorrow" are dates relative to now
//   - "true" and "false" in any case are booleans
//
// Anything else stays a string.
func CoerceValue(field, value string, now time.Time) (ldvalue.Value, error) {
	switch {
	case strings.HasSuffix(field, "Rate"):
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return ldvalue.Null(), fmt.Errorf("field %s: %q is not a number", field, value)
		}
		return ldvalue.Float64(f), nil
	case field == "year" || field == "level":
		n, err := strconv.Atoi(value)
		if err != nil {
			return ldvalue.Null(), fmt.Errorf("field %s: %q is not an integer", field, value)
		}
		return ldvalue.Int(n), nil
	case value == "today":
		return ldvalue.String(now.Format(dateLayout)), nil
	case value == "tomorrow":
		return ldvalue.String(now.AddDate(0, 0, 1).Format(dateLayout)), nil
	case strings.EqualFold(value, "true"):
		return ldvalue.Bool(true), nil
	case strings.EqualFold(value, "false"):
		return ldvalue.Bool(false), nil
	}
	return ldvalue.String(value), nil
}

// Rubric is one row of a Type | Value | BillableLaborHours table.
type Rubric struct {
	Type               string
	Value              ldvalue.Value // number or null
	BillableLaborHours ldvalue.Value // number or null
}

// Key is the rubric's key in the "rubrics" object: the lower-cased part of the type before
// the first underscore, with "non" standing for nonDestructiveTest.
func (r Rubric) Key() string {
	return RubricKey(r.Type)
}

// RubricKey derives the rubrics object key for a rubric type such as "AIRFRAME_LABOR".
func RubricKey(rubricType string) string {
	key := strings.ToLower(strings.SplitN(rubricType, "_", 2)[0])
	if key == "non" {
		return "nonDestructiveTest"
	}
	return key
}

// BuildRubrics parses a rubric table. Empty cells become null.
func BuildRubrics(t Table) ([]Rubric, ldvalue.Value, error) {
	var rubrics []Rubric
	obj := ldvalue.ObjectBuild()
	for _, rec := range t.Records() {
		r := Rubric{Type: rec["Type"]}
		if r.Type == "" {
			return nil, ldvalue.Null(), fmt.Errorf("rubric row has no Type: %v", rec)
		}
		var err error
		if r.Value, err = optionalFloat(rec["Value"]); err != nil {
			return nil, ldvalue.Null(), fmt.Errorf("rubric %s Value: %w", r.Type, err)
		}
		if r.BillableLaborHours, err = optionalFloat(rec["BillableLaborHours"]); err != nil {
			return nil, ldvalue.Null(), fmt.Errorf("rubric %s BillableLaborHours: %w", r.Type, err)
		}
		rubrics = append(rubrics, r)
		obj.Set(r.Key(), ldvalue.ObjectBuild().
			Set("type", ldvalue.String(r.Type)).
			Set("value", r.Value).
			Set("billableLaborHours", r.BillableLaborHours).
			Build())
	}
	return rubrics, obj.Build(), nil
}

func optionalFloat(s string) (ldvalue.Value, error) {
	if s == "" {
		return ldvalue.Null(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ldvalue.Null(), fmt.Errorf("%q is not a number", s)
	}
	return ldvalue.Float64(f), nil
}

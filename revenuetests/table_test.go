package revenuetests

import (
	"testing"
	"time"

	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

var testNow = time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC)

func gherkinTable(rows ...[]string) *godog.Table {
	t := &godog.Table{}
	for _, row := range rows {
		r := &messages.PickleTableRow{}
		for _, v := range row {
			r.Cells = append(r.Cells, &messages.PickleTableCell{Value: v})
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func TestTableFromGherkin(t *testing.T) {
	table := TableFromGherkin(gherkinTable(
		[]string{"Field", "Value"},
		[]string{"level", " 1 "},
		[]string{"comments", "hello"},
	))
	assert.Equal(t, []string{"Field", "Value"}, table.Header)
	assert.Equal(t, []map[string]string{
		{"Field": "level", "Value": "1"},
		{"Field": "comments", "Value": "hello"},
	}, table.Records())
}

func TestCoerceValue(t *testing.T) {
	for _, p := range []struct {
		field, value string
		expected     ldvalue.Value
	}{
		{"airframeRate", "1000.5", ldvalue.Float64(1000.5)},
		{"ndtRate", "600", ldvalue.Float64(600)},
		{"year", "2023", ldvalue.Int(2023)},
		{"level", "3", ldvalue.Int(3)},
		{"registrationDate", "today", ldvalue.String("2026-10-19")},
		{"dateOut", "tomorrow", ldvalue.String("2026-10-20")},
		{"isAssociatedToEvent", "TRUE", ldvalue.Bool(true)},
		{"isAssociatedToEvent", "false", ldvalue.Bool(false)},
		{"customerId", "22222222-2222-2222-2222-222222222222", ldvalue.String("22222222-2222-2222-2222-222222222222")},
		{"comments", "2021", ldvalue.String("2021")},
	} {
		t.Run(p.field+"="+p.value, func(t *testing.T) {
			v, err := CoerceValue(p.field, p.value, testNow)
			require.NoError(t, err)
			assert.Equal(t, p.expected, v)
		})
	}
}

func TestCoerceValueRejectsBadNumbers(t *testing.T) {
	_, err := CoerceValue("airframeRate", "lots", testNow)
	assert.ErrorContains(t, err, "airframeRate")

	_, err = CoerceValue("year", "2023.5", testNow)
	assert.ErrorContains(t, err, "year")
}

func TestBuildPayloadIsDeterministic(t *testing.T) {
	table := FieldTable("level", "1", "year", "2023", "registrationDate", "today", "airframeRate", "1000")
	p1, err := BuildPayload(table, testNow)
	require.NoError(t, err)
	p2, err := BuildPayload(table, testNow)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.True(t, p1.Value().Equal(p2.Value()), "%s != %s", p1.Value().JSONString(), p2.Value().JSONString())
	assert.JSONEq(t, `{"level":1,"year":2023,"registrationDate":"2026-10-19","airframeRate":1000}`,
		p1.Value().JSONString())
}

func TestBuildPayloadRequiresField(t *testing.T) {
	_, err := BuildPayload(Table{Header: []string{"Field", "Value"}, Rows: [][]string{{"", "x"}}}, testNow)
	assert.Error(t, err)
}

func TestPayloadCopyIsIndependent(t *testing.T) {
	p := Payload{"a": ldvalue.Int(1)}
	c := p.Copy()
	c["a"] = ldvalue.Int(2)
	assert.Equal(t, 1, p["a"].IntValue())
}

func TestRubricKey(t *testing.T) {
	assert.Equal(t, "airframe", RubricKey("AIRFRAME_LABOR"))
	assert.Equal(t, "nonDestructiveTest", RubricKey("NON_DESTRUCTIVE_TEST"))
	assert.Equal(t, "engineering", RubricKey("Engineering"))
}

func TestBuildRubrics(t *testing.T) {
	table := Table{
		Header: []string{"Type", "Value", "BillableLaborHours"},
		Rows: [][]string{
			{"AIRFRAME_LABOR", "1000.0", "10.0"},
			{"NON_DESTRUCTIVE_TEST", "", ""},
		},
	}
	rubrics, obj, err := BuildRubrics(table)
	require.NoError(t, err)
	require.Len(t, rubrics, 2)
	assert.JSONEq(t, `{
		"airframe": {"type": "AIRFRAME_LABOR", "value": 1000, "billableLaborHours": 10},
		"nonDestructiveTest": {"type": "NON_DESTRUCTIVE_TEST", "value": null, "billableLaborHours": null}
	}`, obj.JSONString())
}

func TestBuildRubricsRejectsBadNumber(t *testing.T) {
	_, _, err := BuildRubrics(Table{
		Header: []string{"Type", "Value", "BillableLaborHours"},
		Rows:   [][]string{{"AIRFRAME_LABOR", "many", ""}},
	})
	assert.ErrorContains(t, err, "AIRFRAME_LABOR")
}

package revenuetests

import (
	"fmt"

	"github.com/jestrada-applaudo/bdd-mroh/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const laborExportFile = "labor_revenues.xlsx"

func registerLaborSteps(r *Registry) {
	r.Add(`^I have labor revenue data with the following details:$`, haveLaborData)
	r.Add(`^I have the following labor rubrics:$`, haveLaborRubrics)
	r.Add(`^I create a new labor revenue entry$`, createLabor)
	r.Add(`^the labor revenue should be created successfully$`, laborCreatedSuccessfully)
	r.Add(`^the response should contain both rubrics$`, responseHasRubrics)
	r.Add(`^I have created a labor revenue with customer code "([^"]*)"$`, haveCreatedLaborWithCustomerCode)
	r.Add(`^I search for labor revenues with text "([^"]*)"$`, searchLabor)
	r.Add(`^the search results should contain exactly (\d+) (?:entry|entries)$`, searchResultsCount)
	r.Add(`^the entry should have customer code "([^"]*)"$`, entryHasCustomerCode)
	r.Add(`^I have labor revenue data with event association$`, haveLaborDataWithEventAssociation)
	r.Add(`^I set the date out before date in$`, setDateOutBeforeDateIn)
	r.Add(`^I attempt to create a labor revenue entry$`, attemptCreateLabor)
	r.Add(`^I have created multiple labor revenue entries$`, haveCreatedMultipleLabor)
	r.Add(`^I export labor revenues to Excel format$`, exportLabor)
	r.Add(`^the Excel file should contain all revenue entries$`, exportHasEntries)
	r.Add(`^the exported file should be successfully generated$`, exportGenerated)
}

func haveLaborData(s *Scenario, table Table) {
	data, err := BuildPayload(table, s.fixtures.Now())
	require.NoError(s, err)
	data["revisionId"] = ldvalue.String(s.revisionID())
	s.laborData = data
	s.logInfo("Prepared labor data", "fields", len(data))
}

func requireLaborData(s *Scenario) {
	require.NotNil(s, s.laborData, "no labor revenue data prepared in this scenario")
}

func haveLaborRubrics(s *Scenario, table Table) {
	requireLaborData(s)
	rubrics, obj, err := BuildRubrics(table)
	require.NoError(s, err)
	s.expectedRubrics = rubrics
	s.laborData["rubrics"] = obj
	s.logInfo("Added rubrics to labor data", "count", len(rubrics))
}

// standardLaborTable is the labor revenue used by composite steps, built from the
// background's reference entities.
func standardLaborTable(s *Scenario, associatedToEvent bool) Table {
	return FieldTable(
		"type", "LABOR",
		"customerId", s.reference("Customer").ID,
		"aircraftId", s.reference("Aircraft").ID,
		"checkTypeId", s.reference("CheckType").ID,
		"lineId", s.reference("Line").ID,
		"isAssociatedToEvent", fmt.Sprint(associatedToEvent),
		"registrationDate", "today",
	)
}

func rubricTable(value, hours float64) Table {
	return Table{
		Header: []string{"Type", "Value", "BillableLaborHours"},
		Rows:   [][]string{{"AIRFRAME_LABOR", fmt.Sprint(value), fmt.Sprint(hours)}},
	}
}

func createLabor(s *Scenario) {
	requireLaborData(s)
	if _, ok := s.laborData["createdBy"]; !ok {
		s.laborData["createdBy"] = ldvalue.String(s.fixtures.Config().UserID)
	}
	resp, err := s.api().Create(s.ctx, servicedef.LaborResource, s.laborData.Value())
	require.NoError(s, err)
	s.recordResponse(resp, 201)
	if resp.StatusCode != 201 {
		s.logError("Failed to create labor revenue", "status", resp.StatusCode, "body", string(resp.Body))
		return
	}
	s.trackCreatedLabor()
}

func (s *Scenario) trackCreatedLabor() {
	if id := s.response.GetByKey("id").StringValue(); id != "" {
		s.fixtures.Revenues().Add(id)
		s.logInfo("Created labor revenue", "id", id)
	}
}

func attemptCreateLabor(s *Scenario) {
	requireLaborData(s)
	resp, err := s.api().Create(s.ctx, servicedef.LaborResource, s.laborData.Value())
	require.NoError(s, err)
	s.recordAttempt(resp)
	if resp.StatusCode == 201 {
		s.trackCreatedLabor()
	}
	s.logInfo("Attempted to create labor revenue", "status", resp.StatusCode)
}

func laborCreatedSuccessfully(s *Scenario) {
	require.Equal(s, 201, s.status, "Expected status 201; response was %s", s.response.JSONString())
	require.NotEmpty(s, s.response.GetByKey("id").StringValue(), "No id for revenue in response")
}

func responseHasRubrics(s *Scenario) {
	rubrics := s.response.GetByKey("rubrics")
	require.Equal(s, ldvalue.ObjectType, rubrics.Type(), "No rubrics in response")
	if len(s.expectedRubrics) == 0 {
		require.NotZero(s, rubrics.Count(), "No rubrics found in response")
		return
	}
	for _, want := range s.expectedRubrics {
		got := rubrics.GetByKey(want.Key())
		require.False(s, got.IsNull(), "Rubric %q not found in response", want.Key())
		if want.Value.IsNumber() {
			assert.InDelta(s, want.Value.Float64Value(), got.GetByKey("value").Float64Value(), rateTolerance,
				"rubric %s value", want.Key())
		}
		if want.BillableLaborHours.IsNumber() {
			assert.InDelta(s, want.BillableLaborHours.Float64Value(), got.GetByKey("billableLaborHours").Float64Value(),
				rateTolerance, "rubric %s billableLaborHours", want.Key())
		}
	}
	s.logInfo("Verified rubrics in response", "count", len(s.expectedRubrics))
}

func haveCreatedLaborWithCustomerCode(s *Scenario, customerCode string) {
	haveLaborData(s, standardLaborTable(s, false))
	haveLaborRubrics(s, rubricTable(1000, 10))
	s.laborData["customerCode"] = ldvalue.String(customerCode)
	s.laborData["customerName"] = ldvalue.String("Test Customer " + customerCode)
	createLabor(s)
	laborCreatedSuccessfully(s)
}

func searchLabor(s *Scenario, text string) {
	resp, err := s.api().Search(s.ctx, s.revisionID(), servicedef.LaborResource, servicedef.SearchParams{
		SearchText: text,
		PageSize:   servicedef.DefaultPageSize,
	})
	require.NoError(s, err)
	s.recordResponse(resp, 200)
	s.logInfo("Searched for labor revenues", "searchText", text, "status", resp.StatusCode)
}

func searchResultsCount(s *Scenario, count int) {
	items, err := itemsOf(s.response)
	require.NoError(s, err)
	require.Equal(s, count, items.Count(), "Expected exactly %d entries", count)
}

func entryHasCustomerCode(s *Scenario, customerCode string) {
	items, err := itemsOf(s.response)
	require.NoError(s, err)
	require.NotZero(s, items.Count(), "No entries in response")
	assert.Equal(s, customerCode, items.GetByIndex(0).GetByKey("customerCode").StringValue())
}

func haveLaborDataWithEventAssociation(s *Scenario) {
	table := standardLaborTable(s, true)
	table.Rows = append(table.Rows, []string{"dateIn", "today"}, []string{"dateOut", "tomorrow"})
	haveLaborData(s, table)
	haveLaborRubrics(s, rubricTable(1000, 10))
}

func setDateOutBeforeDateIn(s *Scenario) {
	requireLaborData(s)
	now := s.fixtures.Now()
	s.laborData["dateIn"] = ldvalue.String(now.Format(dateLayout))
	s.laborData["dateOut"] = ldvalue.String(now.AddDate(0, 0, -1).Format(dateLayout))
	s.logInfo("Set dateOut before dateIn",
		"dateIn", s.laborData["dateIn"].StringValue(), "dateOut", s.laborData["dateOut"].StringValue())
}

func haveCreatedMultipleLabor(s *Scenario) {
	const entries = 3
	for i := 0; i < entries; i++ {
		haveLaborData(s, standardLaborTable(s, false))
		haveLaborRubrics(s, rubricTable(1000+float64(i)*100, 10+float64(i)))
		s.laborData["customerCode"] = ldvalue.String(fmt.Sprintf("EXPORT-%d", i))
		s.laborData["customerName"] = ldvalue.String(fmt.Sprintf("Export Test Customer %d", i))
		createLabor(s)
		laborCreatedSuccessfully(s)
	}
	s.logInfo("Created labor revenue entries for export", "count", entries)
}

func exportLabor(s *Scenario) {
	exportResource(s, servicedef.LaborResource, laborExportFile)
}

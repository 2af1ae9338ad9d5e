package revenuetests

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jestrada-applaudo/bdd-mroh/client"
	"github.com/jestrada-applaudo/bdd-mroh/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	rateTolerance     = 0.001
	minimumExportSize = 1000
	ratesExportFile   = "rates.xlsx"
)

func registerRateSteps(r *Registry) {
	r.Add(`^I have rate data with the following details:$`, haveRateData)
	r.Add(`^I create a new rate entry$`, createRate)
	r.Add(`^I attempt to create a new rate entry$`, attemptCreateRate)
	r.Add(`^the rate should be created successfully$`, rateCreatedSuccessfully)
	r.Add(`^the response should contain the correct rate values$`, responseHasRateValues)
	r.Add(`^I have created a Level (\d+) rate for year (\d+)$`, haveCreatedLevelRate)
	r.Add(`^I attempt to create another Level (\d+) rate with the same customer and year$`, attemptDuplicateRate)
	r.Add(`^I have rate data with missing required fields$`, haveRateDataWithMissingFields)
	r.Add(`^I have created a Level 1 rate with customer code "([^"]*)"$`, haveCreatedRateWithCustomerCode)
	r.Add(`^I have created multiple rate entries for different years$`, haveCreatedRatesForDifferentYears)
	r.Add(`^I search for rates with customer code "([^"]*)"$`, searchRates)
	r.Add(`^I search for rates with year "([^"]*)"$`, searchRates)
	r.Add(`^the search results should contain all entries for year (\d+)$`, searchResultsAreForYear)
	r.Add(`^I update the rate with new values:$`, updateRate)
	r.Add(`^the rate should be updated successfully$`, rateUpdatedSuccessfully)
	r.Add(`^the response should contain the updated values:$`, responseHasUpdatedValues)
	r.Add(`^I delete the rate$`, deleteRate)
	r.Add(`^the rate should be deleted successfully$`, rateDeletedSuccessfully)
	r.Add(`^the rate should no longer exist in the system$`, rateNoLongerExists)
	r.Add(`^I have created the following rates:$`, haveCreatedRates)
	r.Add(`^I delete multiple rates$`, deleteSelectedRates)
	r.Add(`^all selected rates should be deleted successfully$`, selectedRatesDeleted)
	r.Add(`^none of the deleted rates should exist in the system$`, selectedRatesNoLongerExist)
	r.Add(`^I have created multiple rate entries$`, haveCreatedMultipleRates)
	r.Add(`^I export rates to Excel format$`, exportRates)
	r.Add(`^the Excel file should contain all rate entries$`, exportHasEntries)
	r.Add(`^I fetch the created rate$`, fetchCreatedRate)
	r.Add(`^the fetched rate should match the created rate values$`, fetchedRateMatches)
}

func haveRateData(s *Scenario, table Table) {
	data, err := BuildPayload(table, s.fixtures.Now())
	require.NoError(s, err)
	data["revisionId"] = ldvalue.String(s.revisionID())
	s.rateData = data
	s.logInfo("Prepared rate data", "fields", len(data))
}

func requireRateData(s *Scenario) {
	require.NotNil(s, s.rateData, "no rate data prepared in this scenario")
}

func createRate(s *Scenario) {
	requireRateData(s)
	if _, ok := s.rateData["createdBy"]; !ok {
		s.rateData["createdBy"] = ldvalue.String(s.fixtures.Config().UserID)
	}
	resp, err := s.api().Create(s.ctx, servicedef.RatesResource, s.rateData.Value())
	require.NoError(s, err)
	s.recordResponse(resp, 201)
	if resp.StatusCode != 201 {
		s.logError("Failed to create rate", "status", resp.StatusCode, "body", string(resp.Body))
		return
	}
	s.trackCreatedRate()
}

// trackCreatedRate remembers the rate in the current response for cleanup.
func (s *Scenario) trackCreatedRate() {
	if id := s.response.GetByKey("id").StringValue(); id != "" {
		s.fixtures.Rates().Add(id)
		s.lastRateID = id
		s.logInfo("Created rate", "id", id)
	}
}

func attemptCreateRate(s *Scenario) {
	requireRateData(s)
	resp, err := s.api().Create(s.ctx, servicedef.RatesResource, s.rateData.Value())
	require.NoError(s, err)
	s.recordAttempt(resp)
	if resp.StatusCode == 201 {
		s.trackCreatedRate()
	}
	s.logInfo("Attempted to create rate", "status", resp.StatusCode)
}

func rateCreatedSuccessfully(s *Scenario) {
	require.Equal(s, 201, s.status, "Expected status 201; response was %s", s.response.JSONString())
	require.NotEmpty(s, s.response.GetByKey("id").StringValue(), "No id for rate in response")
}

func responseHasRateValues(s *Scenario) {
	requireRateData(s)
	for field, expected := range s.rateData {
		if !strings.HasSuffix(field, "Rate") {
			continue
		}
		if actual := s.response.GetByKey(field); !actual.IsNull() {
			assert.InDelta(s, expected.Float64Value(), actual.Float64Value(), rateTolerance, "field %s", field)
		}
	}
}

// levelRateFields are the fields a rate of each level carries besides the common ones.
func levelRateFields(s *Scenario, level int) Payload {
	switch level {
	case 1:
		return Payload{
			"airframeRate": ldvalue.Float64(1000),
			"backshopRate": ldvalue.Float64(500),
		}
	case 2:
		return Payload{
			"fleetTypeId":     ldvalue.String(s.reference("FleetType").ID),
			"airframeRate":    ldvalue.Float64(1200),
			"engineeringRate": ldvalue.Float64(800),
		}
	case 3:
		return Payload{
			"checkTypeId":    ldvalue.String(s.reference("CheckType").ID),
			"ndtRate":        ldvalue.Float64(600),
			"componentsRate": ldvalue.Float64(900),
		}
	}
	require.Fail(s, "unsupported rate level", "level %d", level)
	return nil
}

func haveCreatedLevelRate(s *Scenario, level, year int) {
	haveRateData(s, FieldTable(
		"level", strconv.Itoa(level),
		"year", strconv.Itoa(year),
		"customerId", s.reference("Customer").ID,
		"comments", fmt.Sprintf("Test Level %d Rate", level),
	))
	for k, v := range levelRateFields(s, level) {
		s.rateData[k] = v
	}
	createRate(s)
	rateCreatedSuccessfully(s)
}

func attemptDuplicateRate(s *Scenario, level int) {
	requireRateData(s)
	require.Equal(s, level, s.rateData["level"].IntValue(), "previous rate data was for another level")
	attemptCreateRate(s)
}

func haveRateDataWithMissingFields(s *Scenario) {
	haveRateData(s, FieldTable("level", "1", "year", "2023"))
	s.rateData["airframeRate"] = ldvalue.Float64(1000)
	s.rateData["backshopRate"] = ldvalue.Float64(500)
}

func haveCreatedRateWithCustomerCode(s *Scenario, customerCode string) {
	haveRateData(s, FieldTable(
		"level", "1",
		"year", "2031",
		"customerId", s.reference("Customer").ID,
		"comments", "Test Rate for "+customerCode,
	))
	s.rateData["airframeRate"] = ldvalue.Float64(1000)
	s.rateData["backshopRate"] = ldvalue.Float64(500)
	s.rateData["customerCode"] = ldvalue.String(customerCode)
	createRate(s)
	rateCreatedSuccessfully(s)
}

func haveCreatedRatesForDifferentYears(s *Scenario) {
	for _, year := range []int{2020, 2021, 2022} {
		haveCreatedLevelRate(s, 1, year)
	}
}

func searchRates(s *Scenario, text string) {
	resp, err := s.api().Search(s.ctx, s.revisionID(), servicedef.RatesResource, servicedef.SearchParams{
		SearchText: text,
		PageSize:   servicedef.DefaultPageSize,
	})
	require.NoError(s, err)
	s.recordResponse(resp, 200)
	s.logInfo("Searched for rates", "searchText", text, "status", resp.StatusCode)
}

func searchResultsAreForYear(s *Scenario, year int) {
	items, err := itemsOf(s.response)
	require.NoError(s, err)
	require.NotZero(s, items.Count(), "search returned no entries")
	for i := 0; i < items.Count(); i++ {
		assert.Equal(s, year, items.GetByIndex(i).GetByKey("year").IntValue(),
			"entry %s", items.GetByIndex(i).GetByKey("id").StringValue())
	}
	s.logInfo("Search results all have the expected year", "year", year, "count", items.Count())
}

func updateRate(s *Scenario, table Table) {
	requireRateData(s)
	id := s.responseID()
	changes, err := BuildPayload(table, s.fixtures.Now())
	require.NoError(s, err)

	update := s.rateData.Copy()
	for k, v := range changes {
		update[k] = v
	}
	update["lastModifiedBy"] = ldvalue.String(s.fixtures.Config().UserID)

	resp, err := s.api().Update(s.ctx, servicedef.RatesResource, id, update.Value())
	require.NoError(s, err)
	s.recordResponse(resp, 200)
	if resp.StatusCode != 200 {
		s.logError("Failed to update rate", "id", id, "status", resp.StatusCode, "body", string(resp.Body))
		return
	}
	s.logInfo("Updated rate", "id", id)
}

func rateUpdatedSuccessfully(s *Scenario) {
	require.Equal(s, 200, s.status, "Expected status 200; response was %s", s.response.JSONString())
}

func responseHasUpdatedValues(s *Scenario, table Table) {
	expected, err := BuildPayload(table, s.fixtures.Now())
	require.NoError(s, err)
	for field, want := range expected {
		got := s.response.GetByKey(field)
		if strings.HasSuffix(field, "Rate") {
			assert.InDelta(s, want.Float64Value(), got.Float64Value(), rateTolerance, "field %s", field)
		} else {
			assert.True(s, want.Equal(got), "field %s: expected %s, got %s", field, want.JSONString(), got.JSONString())
		}
	}
}

func deleteRate(s *Scenario) {
	id := s.responseID()
	deleteRatesByID(s, []string{id})
}

func deleteRatesByID(s *Scenario, ids []string) {
	resp, err := s.api().Delete(s.ctx, servicedef.RatesResource, ids)
	require.NoError(s, err)
	s.recordResponse(resp, 200)
	if resp.StatusCode != 200 {
		s.logError("Failed to delete rates", "status", resp.StatusCode, "body", string(resp.Body))
		return
	}
	deleted := client.DeletedIDs(servicedef.RatesResource, s.response)
	s.fixtures.Rates().Remove(deleted...)
	s.logInfo("Deleted rates", "count", len(deleted))
}

func rateDeletedSuccessfully(s *Scenario) {
	require.Equal(s, 200, s.status, "Expected status 200; response was %s", s.response.JSONString())
}

func rateNoLongerExists(s *Scenario) {
	id := s.response.GetByKey("deletedRates").GetByIndex(0).StringValue()
	if id == "" {
		id = s.lastRateID
	}
	require.NotEmpty(s, id, "no deleted rate to check")
	requireRateGone(s, id)
}

// requireRateGone fetches a rate and expects 404. It does not replace the current response.
func requireRateGone(s *Scenario, id string) {
	resp, err := s.api().Fetch(s.ctx, s.revisionID(), servicedef.RatesResource, id)
	require.NoError(s, err)
	require.Equal(s, 404, resp.StatusCode, "Expected rate %s to be deleted", id)
	s.logInfo("Verified rate no longer exists", "id", id)
}

func haveCreatedRates(s *Scenario, table Table) {
	s.selectedRateIDs = nil
	for _, rec := range table.Records() {
		level, err := strconv.Atoi(rec["Level"])
		require.NoError(s, err, "Level")
		year, err := strconv.Atoi(rec["Year"])
		require.NoError(s, err, "Year")
		haveCreatedLevelRate(s, level, year)
		s.selectedRateIDs = append(s.selectedRateIDs, s.responseID())
	}
	s.logInfo("Created rates for deletion", "count", len(s.selectedRateIDs))
}

func deleteSelectedRates(s *Scenario) {
	require.NotEmpty(s, s.selectedRateIDs, "no rates were selected")
	deleteRatesByID(s, s.selectedRateIDs)
}

func selectedRatesDeleted(s *Scenario) {
	require.Equal(s, 200, s.status, "Expected status 200; response was %s", s.response.JSONString())
	deleted := client.DeletedIDs(servicedef.RatesResource, s.response)
	require.Len(s, deleted, len(s.selectedRateIDs))
}

func selectedRatesNoLongerExist(s *Scenario) {
	for _, id := range s.selectedRateIDs {
		requireRateGone(s, id)
	}
}

func haveCreatedMultipleRates(s *Scenario) {
	levels, years := []int{1, 2, 3}, []int{2024, 2025, 2026}
	for i := range levels {
		haveCreatedLevelRate(s, levels[i], years[i])
	}
	s.logInfo("Created rate entries for export", "count", len(levels))
}

func exportRates(s *Scenario) {
	exportResource(s, servicedef.RatesResource, ratesExportFile)
}

func exportResource(s *Scenario, resource, fileName string) {
	resp, err := s.api().Export(s.ctx, s.revisionID(), resource)
	require.NoError(s, err)
	s.status = resp.StatusCode
	if resp.StatusCode != 200 {
		s.exported = nil
		s.response = resp.ErrorEnvelope()
		s.logError("Failed to export to Excel", "resource", resource, "status", resp.StatusCode, "body", string(resp.Body))
		return
	}
	s.exported = resp.Body
	s.saveExport(fileName, resp.Body)
}

func exportHasEntries(s *Scenario) {
	exportGenerated(s)
	require.Greater(s, len(s.exported), minimumExportSize,
		"Excel file too small (%d bytes), might not contain data", len(s.exported))
	s.logInfo("Verified Excel file size", "bytes", len(s.exported))
}

func exportGenerated(s *Scenario) {
	require.NotNil(s, s.exported, "No exported file was generated")
	require.NotEmpty(s, s.exported, "Exported file is empty")
}

func fetchCreatedRate(s *Scenario) {
	id := s.responseID()
	resp, err := s.api().Fetch(s.ctx, s.revisionID(), servicedef.RatesResource, id)
	require.NoError(s, err)
	s.status = resp.StatusCode
	s.fetched = resp.Expecting(200)
	s.logInfo("Fetched rate", "id", id, "status", resp.StatusCode)
}

func fetchedRateMatches(s *Scenario) {
	requireRateData(s)
	require.Equal(s, 200, s.status, "fetch failed: %s", s.fetched.JSONString())
	for field, expected := range s.rateData {
		actual := s.fetched.GetByKey(field)
		if strings.HasSuffix(field, "Rate") {
			require.True(s, actual.IsNumber(), "field %s missing from fetched rate", field)
			assert.InDelta(s, expected.Float64Value(), actual.Float64Value(), rateTolerance, "field %s", field)
		} else {
			assert.True(s, expected.Equal(actual), "field %s: expected %s, got %s", field, expected.JSONString(), actual.JSONString())
		}
	}
}

package revenuetests

import (
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerCommonSteps(r *Registry) {
	r.Add(`^the API is accessible$`, apiIsAccessible)
	r.Add(`^I am authenticated with valid credentials$`, authenticatedWithValidCredentials)
	r.Add(`^a test revision exists$`, testRevisionExists)
	r.Add(`^the following reference entities exist:$`, referenceEntitiesExist)
	r.Add(`^the response status should be (\d+)$`, responseStatusShouldBe)
	r.Add(`^the operation should fail with a validation error$`, operationFailsWithValidationError)
	r.Add(`^the error message should mention "([^"]*)"$`, errorMessageMentions)
}

func apiIsAccessible(s *Scenario) {
	cfg := s.fixtures.Config()
	require.NotEmpty(s, cfg.BaseURL, "API base URL not configured")
	require.NotEmpty(s, cfg.Token, "API token not configured")
	s.logInfo("API configuration verified", "baseURL", cfg.BaseURL)
}

func authenticatedWithValidCredentials(s *Scenario) {
	header := s.api().AuthHeader()
	require.True(s, strings.HasPrefix(header, "Bearer ") && len(header) > len("Bearer "),
		"Authentication header not set")
	s.logInfo("Authentication configured")
}

func testRevisionExists(s *Scenario) {
	s.logInfo("Using test revision", "revisionId", s.revisionID())
}

// referenceEntitiesExist records the Entity | ID | Name/Code table. An entity the API does
// not know is only a warning; scenarios that depend on it will fail on their own.
func referenceEntitiesExist(s *Scenario, table Table) {
	for _, rec := range table.Records() {
		entityType, id := rec["Entity"], rec["ID"]
		require.NotEmpty(s, entityType, "reference entity row has no Entity")

		resp, err := s.api().GetReferenceEntity(s.ctx, entityType, id)
		switch {
		case err != nil:
			s.fixtures.Logger().Warn("Could not check reference entity", "entity", entityType, "id", id, "err", err)
		case resp.StatusCode != 200:
			s.fixtures.Logger().Warn("Reference entity not found. Tests may fail.",
				"entity", entityType, "id", id, "status", resp.StatusCode)
		}
		s.references[entityType] = ReferenceEntity{ID: id, Name: rec["Name/Code"]}
	}
	s.logInfo("Using reference entities", "count", len(s.references))
}

func responseStatusShouldBe(s *Scenario, status int) {
	assert.Equal(s, status, s.status, "unexpected status; response was %s", s.response.JSONString())
}

func operationFailsWithValidationError(s *Scenario) {
	require.NotEqual(s, 201, s.status, "Expected failure but got success with status %d", s.status)
	require.GreaterOrEqual(s, s.status, 400, "Expected error status but got %d", s.status)
	s.logInfo("Verified operation failed", "status", s.status)
}

func errorMessageMentions(s *Scenario, text string) {
	responseText := s.response.JSONString()
	require.Contains(s, responseText, text, "Expected error message to contain %q", text)
	s.logInfo("Verified error message", "contains", text)
}

package revenuetests

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jestrada-applaudo/bdd-mroh/config"
	"github.com/jestrada-applaudo/bdd-mroh/fixtures"
	"github.com/jestrada-applaudo/bdd-mroh/framework"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T, baseURL, outputDir string) *fixtures.Manager {
	cfg, err := config.Parse(map[string]string{
		"API_BASE_URL":    baseURL,
		"API_TOKEN":       testToken,
		"API_TIMEOUT":     "5s",
		"TEST_OUTPUT_DIR": outputDir,
	})
	require.NoError(t, err)
	m := fixtures.New(cfg, nil)
	m.SetClock(func() time.Time { return testNow })
	return m
}

// runFeature runs feature text with the steps in r and returns godog's status and the
// recorded results.
func runFeature(t *testing.T, feature string, r *Registry, filter framework.Filter) (int, framework.Results) {
	path := filepath.Join(t.TempDir(), "registry.feature")
	require.NoError(t, os.WriteFile(path, []byte(feature), 0o644))

	env := framework.NewEnvironment(filter, nil)
	m := testManager(t, "http://localhost:1", t.TempDir())
	var current *Scenario
	status := godog.TestSuite{
		Name: "registry",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			sc.Before(func(ctx context.Context, gs *godog.Scenario) (context.Context, error) {
				current = newScenario(ctx, env.Start(ScenarioID(gs)), m)
				return ctx, nil
			})
			sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
				current.Finish()
				return ctx, nil
			})
			r.Bind(sc, func() *Scenario { return current })
		},
		Options: &godog.Options{
			Format:      "progress",
			Output:      io.Discard,
			Paths:       []string{path},
			Concurrency: 1,
			Strict:      true,
		},
	}.Run()
	return status, env.Results()
}

type recorder struct {
	calls []string
}

func (rec *recorder) registry() *Registry {
	r := &Registry{}
	record := func(s *Scenario, text string) { rec.calls = append(rec.calls, text) }
	fail := func(s *Scenario) { require.Fail(s, "boom") }
	r.Add(`^I record "([^"]*)"$`, record)
	r.Add(`^I record the number (\d+) and (-?\d+\.\d+)$`, func(s *Scenario, n int, f float64) {
		rec.calls = append(rec.calls, "number")
		assert.Equal(s, 7, n)
		assert.Equal(s, 2.5, f)
	})
	r.Add(`^I record the table:$`, func(s *Scenario, table Table) {
		for _, row := range table.Records() {
			rec.calls = append(rec.calls, row["Name"])
		}
	})
	r.Add(`^a step fails$`, fail)
	r.Add(`^a composite step fails halfway$`, func(s *Scenario) {
		record(s, "composite start")
		fail(s)
		record(s, "composite end")
	})
	return r
}

func TestBoundStepsReceiveArguments(t *testing.T) {
	rec := &recorder{}
	status, results := runFeature(t, `Feature: args
  Scenario: all argument kinds
    Given I record "a"
    And I record the number 7 and 2.5
    And I record the table:
      | Name |
      | b    |
      | c    |
`, rec.registry(), nil)

	assert.Equal(t, 0, status)
	assert.True(t, results.OK())
	assert.Equal(t, []string{"a", "number", "b", "c"}, rec.calls)
}

func TestFailedStepSkipsRestOfScenario(t *testing.T) {
	rec := &recorder{}
	status, results := runFeature(t, `Feature: failure
  Scenario: fails
    Given I record "before"
    And a step fails
    And I record "after"

  Scenario: still runs
    Given I record "next scenario"
`, rec.registry(), nil)

	assert.Equal(t, 1, status)
	assert.Equal(t, []string{"before", "next scenario"}, rec.calls)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "registry/fails", results.Failures[0].TestID.String())
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "boom")
}

func TestCompositeStepStopsAtFirstFailure(t *testing.T) {
	rec := &recorder{}
	status, _ := runFeature(t, `Feature: composite
  Scenario: composite
    Given a composite step fails halfway
    And I record "after"
`, rec.registry(), nil)

	assert.Equal(t, 1, status)
	assert.Equal(t, []string{"composite start"}, rec.calls)
}

func TestFilteredScenarioIsSkipped(t *testing.T) {
	rec := &recorder{}
	filter := framework.RegexFilters{}
	require.NoError(t, filter.MustNotMatch.Set("excluded"))
	status, results := runFeature(t, `Feature: filter
  Scenario: excluded
    Given I record "excluded"

  Scenario: included
    Given I record "included"
`, rec.registry(), filter.AsFilter)

	assert.Equal(t, 0, status)
	assert.Equal(t, []string{"included"}, rec.calls)
	passed, failed, skipped := results.Counts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, skipped)
}

func TestAddRejectsMalformedHandlers(t *testing.T) {
	r := &Registry{}
	assert.Panics(t, func() { r.Add(`^x$`, "not a function") })
	assert.Panics(t, func() { r.Add(`^x$`, func() {}) })
	assert.Panics(t, func() { r.Add(`^x$`, func(c *framework.Context) {}) })
	assert.Panics(t, func() { r.Add(`^x (\d+)$`, func(s *Scenario, n int64) {}) })
	assert.Panics(t, func() { r.Add(`^x$`, func(s *Scenario) error { return nil }) })

	r.Add(`^x$`, func(s *Scenario) {})
	assert.Panics(t, func() { r.Add(`^x$`, func(s *Scenario) {}) })
}

func TestNewRegistryHasNoDuplicatePatterns(t *testing.T) {
	r := NewRegistry()
	seen := map[string]bool{}
	for _, p := range r.Patterns() {
		assert.False(t, seen[p], p)
		seen[p] = true
	}
	assert.Contains(t, seen, `^I have created a Level (\d+) rate for year (\d+)$`)
}

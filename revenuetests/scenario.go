package revenuetests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jestrada-applaudo/bdd-mroh/client"
	"github.com/jestrada-applaudo/bdd-mroh/fixtures"
	"github.com/jestrada-applaudo/bdd-mroh/framework"

	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ReferenceEntity is a row of the reference entities table.
type ReferenceEntity struct {
	ID   string
	Name string
}

// Scenario is the state of one running scenario. It embeds the framework context, so it
// can be passed to assert and require directly; a failed require ends the current step.
//
// Everything here is discarded when the scenario ends. State that outlives a scenario is
// kept by the fixtures.Manager.
type Scenario struct {
	*framework.Context
	fixtures *fixtures.Manager
	client   *client.APIClient
	ctx      context.Context

	references      map[string]ReferenceEntity
	rateData        Payload
	laborData       Payload
	expectedRubrics []Rubric
	response        ldvalue.Value
	status          int
	lastRateID      string
	selectedRateIDs []string
	fetched         ldvalue.Value
	exported        []byte
}

func newScenario(ctx context.Context, c *framework.Context, m *fixtures.Manager) *Scenario {
	httpLogger := requestLogger{
		run:     m.Logger(),
		capture: framework.LoggerWithPrefix(c.DebugLogger(), "[api] "),
	}
	return &Scenario{
		Context:    c,
		fixtures:   m,
		client:     m.Client().WithLogger(httpLogger),
		ctx:        ctx,
		references: make(map[string]ReferenceEntity),
		response:   ldvalue.Null(),
		fetched:    ldvalue.Null(),
	}
}

func (s *Scenario) api() *client.APIClient {
	return s.client
}

// requestLogger sends request traces both to the run log and to the scenario's captured
// debug output.
type requestLogger struct {
	run     client.Logger
	capture framework.Logger
}

func (l requestLogger) Debugf(format string, args ...interface{}) {
	l.run.Debugf(format, args...)
	l.capture.Printf(format, args...)
}

// logInfo writes to the run log and to the scenario's debug output.
func (s *Scenario) logInfo(msg string, keyvals ...interface{}) {
	s.fixtures.Logger().Info(msg, keyvals...)
	s.Debug("%s %v", msg, keyvals)
}

func (s *Scenario) logError(msg string, keyvals ...interface{}) {
	s.fixtures.Logger().Error(msg, keyvals...)
	s.Debug("ERROR: %s %v", msg, keyvals)
}

// revisionID returns the run's revision or fails the step.
func (s *Scenario) revisionID() string {
	id, err := s.fixtures.RequireRevision()
	require.NoError(s, err)
	return id
}

// reference returns a reference entity declared in the background, or fails the step.
func (s *Scenario) reference(entityType string) ReferenceEntity {
	ref, ok := s.references[entityType]
	require.True(s, ok, "reference entity %q was not declared in the scenario background", entityType)
	return ref
}

// responseID is the id of the record in the current response.
func (s *Scenario) responseID() string {
	id := s.response.GetByKey("id").StringValue()
	require.NotEmpty(s, id, "no id in current response: %s", s.response.JSONString())
	return id
}

// recordResponse stores a response, decoded if it has the expected status and otherwise as
// an {error, status_code} envelope.
func (s *Scenario) recordResponse(resp client.Response, expectedStatus int) {
	s.status = resp.StatusCode
	s.response = resp.Expecting(expectedStatus)
}

// recordAttempt stores a response decoded whatever its status.
func (s *Scenario) recordAttempt(resp client.Response) {
	s.status = resp.StatusCode
	s.response = resp.Lenient()
}

// saveExport writes exported bytes to the output directory.
func (s *Scenario) saveExport(fileName string, data []byte) {
	dir := s.fixtures.Config().OutputDir
	require.NoError(s, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, fileName)
	require.NoError(s, os.WriteFile(path, data, 0o644), "writing %s", path)
	s.logInfo("Saved export", "path", path, "bytes", len(data))
}

func itemsOf(response ldvalue.Value) (ldvalue.Value, error) {
	items := response.GetByKey("items")
	if items.Type() != ldvalue.ArrayType {
		return items, fmt.Errorf("no items in response: %s", response.JSONString())
	}
	return items, nil
}

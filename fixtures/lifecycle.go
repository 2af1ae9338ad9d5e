package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jestrada-applaudo/bdd-mroh/client"
	"github.com/jestrada-applaudo/bdd-mroh/config"
	"github.com/jestrada-applaudo/bdd-mroh/logging"
	"github.com/jestrada-applaudo/bdd-mroh/servicedef"

	"github.com/charmbracelet/log"
)

const (
	revisionType      = "TEST"
	revisionComment   = "Automated test revision"
	revisionNameLimit = 20
	revisionClosure   = 7 * 24 * time.Hour
)

// Manager owns the suite-level state of a test run: configuration, the API client, the run
// log, the revision shared by every scenario that needs one, and the ids of everything the
// suite created. Scenarios run one at a time and share the Manager by reference.
type Manager struct {
	cfg         config.Config
	client      *client.APIClient
	logger      *log.Logger
	sink        *logging.Sink
	rates       Tracker
	revenues    Tracker
	revisionID  string
	revisionErr error
	now         func() time.Time
}

// Initialize resolves configuration from envFile and the environment, opens the run log in
// the configured output directory (mirrored to console), and returns a Manager. An error
// here is a configuration error and should abort the run.
func Initialize(envFile string, console io.Writer) (*Manager, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	sink, err := logging.Open(cfg.OutputDir, cfg.LogLevel, console)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	m := New(cfg, sink.Logger)
	m.sink = sink
	m.logger.Info("Test run started", "baseURL", cfg.BaseURL, "log", sink.Path())
	return m, nil
}

// New returns a Manager for an already resolved configuration.
func New(cfg config.Config, logger *log.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		cfg:    cfg,
		client: client.New(cfg.BaseURL, cfg.Token, cfg.RequestTimeout, logger),
		logger: logger,
		now:    time.Now,
	}
}

func (m *Manager) Config() config.Config     { return m.cfg }
func (m *Manager) Client() *client.APIClient { return m.client }
func (m *Manager) Logger() *log.Logger       { return m.logger }
func (m *Manager) Rates() *Tracker           { return &m.rates }
func (m *Manager) Revenues() *Tracker        { return &m.revenues }

// Now is the clock used for revision dates and for relative dates in step tables.
func (m *Manager) Now() time.Time { return m.now() }

// SetClock replaces the clock.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Tracker returns the tracker for a resource name from servicedef.
func (m *Manager) Tracker(resource string) *Tracker {
	if resource == servicedef.LaborResource {
		return &m.revenues
	}
	return &m.rates
}

// RevisionID returns the run's revision, or "" if none was created.
func (m *Manager) RevisionID() string { return m.revisionID }

// RequireRevision returns the run's revision. If there is none, the error wraps
// ErrPrerequisiteMissing and, if revision creation was attempted, the reason it failed.
func (m *Manager) RequireRevision() (string, error) {
	if m.revisionID != "" {
		return m.revisionID, nil
	}
	if m.revisionErr != nil {
		return "", fmt.Errorf("%w: test revision was not created: %w", ErrPrerequisiteMissing, m.revisionErr)
	}
	return "", fmt.Errorf("%w: test revision was not created; is the scenario tagged @%s?",
		ErrPrerequisiteMissing, m.cfg.RevisionTag)
}

// PrepareScenario runs before each scenario. If the scenario is tagged as needing a
// revision and the run has none yet, it creates one. A failure is logged and remembered for
// RequireRevision; it does not stop the run.
func (m *Manager) PrepareScenario(ctx context.Context, name string, tags []string) {
	m.logger.Info("Starting scenario", "name", name)
	if m.revisionID != "" || !hasTag(tags, m.cfg.RevisionTag) {
		return
	}
	if err := m.createRevision(ctx, name); err != nil {
		m.revisionErr = err
		m.logger.Error("Failed to create revision", "err", err)
	}
}

// FinalizeScenario runs after each scenario. It only records the outcome.
func (m *Manager) FinalizeScenario(name string, err error) {
	if err != nil {
		m.logger.Warn("Completed scenario", "name", name, "err", err)
		return
	}
	m.logger.Info("Completed scenario", "name", name)
}

// FinalizeSuite deletes every tracked labor revenue and rate with one bulk request per
// collection. The two deletions are independent. Every outcome is logged and returned;
// nothing is propagated.
func (m *Manager) FinalizeSuite(ctx context.Context) []CleanupOutcome {
	var outcomes []CleanupOutcome
	for _, resource := range []string{servicedef.LaborResource, servicedef.RatesResource} {
		ids := m.Tracker(resource).IDs()
		if len(ids) == 0 {
			continue
		}
		outcome := m.cleanup(ctx, resource, ids)
		for _, id := range outcome.Remaining() {
			m.logger.Error("Tracked entity was not cleaned up", "resource", resource, "id", id)
		}
		outcomes = append(outcomes, outcome)
	}
	m.logger.Info("Test run completed")
	return outcomes
}

// Close closes the run log opened by Initialize.
func (m *Manager) Close() error {
	if m.sink == nil {
		return nil
	}
	return m.sink.Close()
}

func (m *Manager) cleanup(ctx context.Context, resource string, ids []string) (outcome CleanupOutcome) {
	outcome = CleanupOutcome{Resource: resource, Requested: ids}
	defer func() {
		if r := recover(); r != nil {
			outcome.Err = fmt.Errorf("panic during cleanup: %v", r)
			m.logger.Error("Error cleaning up", "resource", resource, "err", outcome.Err)
		}
	}()

	resp, err := m.client.Delete(ctx, resource, ids)
	if err != nil {
		outcome.Err = err
		m.logger.Error("Error cleaning up", "resource", resource, "err", err)
		return outcome
	}
	if resp.StatusCode != 200 {
		outcome.Err = fmt.Errorf("bulk delete returned HTTP %d: %s", resp.StatusCode, string(resp.Body))
		m.logger.Error("Failed to clean up", "resource", resource, "status", resp.StatusCode, "body", string(resp.Body))
		return outcome
	}
	outcome.Deleted = client.DeletedIDs(resource, resp.Expecting(200))
	m.Tracker(resource).Remove(outcome.Deleted...)
	m.logger.Info("Cleaned up entries", "resource", resource, "count", len(outcome.Deleted))
	return outcome
}

func (m *Manager) createRevision(ctx context.Context, scenarioName string) error {
	now := m.now()
	name := scenarioName
	if r := []rune(name); len(r) > revisionNameLimit {
		name = string(r[:revisionNameLimit])
	}
	_, week := now.ISOWeek()
	params := servicedef.CreateRevisionParams{
		OpCo:         m.cfg.OpCoID,
		FromRevision: m.cfg.FromRevisionID,
		RevisionName: fmt.Sprintf("Test %s %s", name, now.Format("20060102150405")),
		RevisionType: revisionType,
		Year:         now.Year(),
		Week:         week,
		Comment:      revisionComment,
		Baseline:     now.Format("2006-01-02T15:04:05.000000"),
		Closure:      now.Add(revisionClosure).Format("2006-01-02T15:04:05.000000"),
		IsOfficial:   true,
	}

	resp, err := m.client.CreateRevision(ctx, params)
	if err != nil {
		return err
	}
	if !resp.Succeeded() {
		return fmt.Errorf("status %d, response: %s", resp.StatusCode, string(resp.Body))
	}
	var created servicedef.CreateRevisionResponse
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return fmt.Errorf("malformed revision response: %s", string(resp.Body))
	}
	if created.RevisionID == "" {
		return errors.New("revision response had no revisionId")
	}
	m.revisionID = created.RevisionID
	m.revisionErr = nil
	m.logger.Info("Created test revision", "revisionId", m.revisionID)
	return nil
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want || tag == "@"+want {
			return true
		}
	}
	return false
}

package revenuetests

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/jestrada-applaudo/bdd-mroh/fixtures"
	"github.com/jestrada-applaudo/bdd-mroh/framework"

	"github.com/cucumber/godog"
)

// Suite connects the step registry and the fixture lifecycle to godog. Scenarios must run
// one at a time (godog Concurrency 1) because the suite tracks a single current scenario.
type Suite struct {
	fixtures *fixtures.Manager
	env      *framework.Environment
	registry *Registry
	current  *Scenario
	cleanup  []fixtures.CleanupOutcome
	strict   bool
}

// NewSuite returns a suite using m for suite-level state. Scenarios whose ID is rejected by
// filter are reported as skipped; testLogger receives per-scenario progress.
func NewSuite(m *fixtures.Manager, filter framework.Filter, testLogger framework.TestLogger) *Suite {
	return &Suite{
		fixtures: m,
		env:      framework.NewEnvironment(filter, testLogger),
		registry: NewRegistry(),
	}
}

// NewRegistry returns a registry containing every revenue API step.
func NewRegistry() *Registry {
	r := &Registry{}
	registerCommonSteps(r)
	registerRateSteps(r)
	registerLaborSteps(r)
	return r
}

// Run runs the feature files described by opts and returns godog's exit status.
func (s *Suite) Run(opts godog.Options) int {
	s.strict = opts.Strict
	return godog.TestSuite{
		Name:                 "revenue",
		TestSuiteInitializer: s.InitializeTestSuite,
		ScenarioInitializer:  s.InitializeScenario,
		Options:              &opts,
	}.Run()
}

func (s *Suite) InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.AfterSuite(func() {
		s.cleanup = s.fixtures.FinalizeSuite(context.Background())
	})
}

func (s *Suite) InitializeScenario(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, gs *godog.Scenario) (context.Context, error) {
		c := s.env.Start(ScenarioID(gs))
		s.current = newScenario(ctx, c, s.fixtures)
		if !c.Skipped() {
			s.fixtures.PrepareScenario(ctx, gs.Name, tagNames(gs))
		}
		return ctx, nil
	})
	sc.After(func(ctx context.Context, gs *godog.Scenario, err error) (context.Context, error) {
		if s.current != nil {
			if !s.current.Skipped() {
				if s.unrecorded(err) {
					s.current.Fail(err)
				}
				s.fixtures.FinalizeScenario(gs.Name, err)
			}
			s.current.Finish()
		}
		return ctx, nil
	})
	s.registry.Bind(sc, func() *Scenario { return s.current })
}

// unrecorded reports whether err is a scenario failure godog detected outside of any step
// handler, such as an undefined step in strict mode.
func (s *Suite) unrecorded(err error) bool {
	if err == nil || errors.Is(err, godog.ErrSkip) || s.current.Failed() {
		return false
	}
	if errors.Is(err, godog.ErrUndefined) || errors.Is(err, godog.ErrPending) {
		return s.strict
	}
	return true
}

// Results returns the results of every scenario run so far.
func (s *Suite) Results() framework.Results {
	return s.env.Results()
}

// CleanupOutcomes returns the outcomes of the suite teardown, once it has run.
func (s *Suite) CleanupOutcomes() []fixtures.CleanupOutcome {
	return s.cleanup
}

// ScenarioID identifies a scenario by its feature file name and scenario name, e.g.
// "rates/Create a new Level 1 rate".
func ScenarioID(gs *godog.Scenario) framework.TestID {
	feature := strings.TrimSuffix(path.Base(gs.Uri), path.Ext(gs.Uri))
	return framework.TestID{Path: []string{feature, gs.Name}}
}

func tagNames(gs *godog.Scenario) []string {
	ret := make([]string, 0, len(gs.Tags))
	for _, t := range gs.Tags {
		ret = append(ret, t.Name)
	}
	return ret
}

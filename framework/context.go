package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Environment collects results for a whole test run. Scenario contexts created from the
// same Environment report to the same TestLogger and share one Results.
type Environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
}

// Context is the per-scenario test context. It implements the same basic functionality as
// Go's testing.T (Errorf, FailNow) so that the assert and require packages can be used
// against it, but it runs inside the BDD runner rather than the Go test runner.
//
// Steps run one at a time through Step; a FailNow inside a step unwinds only that step,
// which is reported back to the caller as an error.
type Context struct {
	env         *Environment
	id          TestID
	debugLogger CapturingLogger
	failed      bool
	stepFailed  bool
	skipped     bool
	skipReason  string
	finished    bool
	errors      []error
}

func NewEnvironment(filter Filter, testLogger TestLogger) *Environment {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	return &Environment{
		filter:     filter,
		testLogger: testLogger,
	}
}

// Results returns a snapshot of the results recorded so far.
func (e *Environment) Results() Results {
	return Results{
		Tests:    append([]TestResult(nil), e.results.Tests...),
		Failures: append([]TestResult(nil), e.results.Failures...),
	}
}

// Start begins a new scenario. If the filter excludes it, the returned Context is already
// marked as skipped and Skipped reports true.
func (e *Environment) Start(id TestID) *Context {
	c := &Context{env: e, id: id}
	e.testLogger.TestStarted(id)
	if e.filter != nil && !e.filter(id) {
		c.skipped = true
		c.skipReason = "excluded by filter parameters"
	}
	return c
}

func (c *Context) ID() TestID {
	return c.id
}

func (c *Context) Skipped() bool {
	return c.skipped
}

func (c *Context) Failed() bool {
	return c.failed
}

// Step runs one step action. It returns nil if the action completed without recording a
// failure, or a TestFailure describing every failure recorded during the action.
func (c *Context) Step(text string, action func(*Context)) (err error) {
	c.debugLogger.Printf("step: %s", text)
	first := len(c.errors)
	c.stepFailed = false

	defer func() {
		if r := recover(); r != nil {
			c.failed = true
			c.stepFailed = true
			var addError error
			if _, ok := r.(*Context); ok {
				if len(c.errors) == first {
					addError = errors.New("step failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in step: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
				c.env.testLogger.TestError(c.id, addError)
			}
		}
		if c.stepFailed {
			err = TestFailure{ID: c.id, Err: errors.Join(c.errors[first:]...)}
		}
	}()

	if c.skipped {
		return errSkipped
	}
	action(c)
	return nil
}

// Finish records the scenario result. Calling it more than once has no further effect.
func (c *Context) Finish() {
	if c.finished {
		return
	}
	c.finished = true
	result := TestResult{TestID: c.id, Errors: c.errors, Skipped: c.skipped}
	c.env.results.Tests = append(c.env.results.Tests, result)
	if c.skipped {
		c.env.testLogger.TestSkipped(c.id, c.skipReason)
		return
	}
	if c.failed {
		c.env.results.Failures = append(c.env.results.Failures, result)
	}
	c.env.testLogger.TestFinished(c.id, c.failed, c.debugLogger.Output())
}

// Fail records an error that happened outside of any step, such as an undefined step or a
// failing hook.
func (c *Context) Fail(err error) {
	c.failed = true
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, err)
}

func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	c.stepFailed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, err)
}

func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}

// IsSkip reports whether err is the error Step returns for a skipped scenario.
func IsSkip(err error) bool {
	return errors.Is(err, errSkipped)
}

var errSkipped = errors.New("scenario skipped")

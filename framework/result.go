package framework

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID  TestID
	Errors  []error
	Skipped bool
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Counts returns the number of passed, failed and skipped scenarios.
func (r Results) Counts() (passed, failed, skipped int) {
	for _, t := range r.Tests {
		if t.Skipped {
			skipped++
		}
	}
	failed = len(r.Failures)
	passed = len(r.Tests) - failed - skipped
	return
}

// TestID identifies a scenario by its path: feature file, then scenario name.
type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// Name is the last path element, which for a scenario is the scenario name.
func (t TestID) Name() string {
	if len(t.Path) == 0 {
		return ""
	}
	return t.Path[len(t.Path)-1]
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}

func (f TestFailure) Unwrap() error {
	return f.Err
}

func PrintResults(out io.Writer, results Results) {
	passed, failed, skipped := results.Counts()
	if failed == 0 {
		color.New(color.FgGreen).Fprintf(out, "All scenarios passed (%d passed, %d skipped)\n", passed, skipped)
		return
	}
	color.New(color.FgRed).Fprintf(out, "FAILED SCENARIOS (%d failed, %d passed, %d skipped):\n", failed, passed, skipped)
	for _, f := range results.Failures {
		fmt.Fprintf(out, "* %s\n", f.TestID)
		for _, e := range f.Errors {
			for _, line := range strings.Split(reformatError(e), "\n") {
				fmt.Fprintf(out, "    %s\n", line)
			}
		}
	}
}

// reformatError strips the blank lines testify puts around its failure blocks.
func reformatError(err error) string {
	var lines []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, " \t"))
		}
	}
	return strings.Join(lines, "\n")
}

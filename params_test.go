package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jestrada-applaudo/bdd-mroh/framework"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerunCommandSelectsFailedScenarios(t *testing.T) {
	params := commandParams{
		features: []string{"features"},
		tags:     "@revenue_test",
		envFile:  ".env",
		debug:    true,
	}
	failures := []framework.TestResult{
		{TestID: framework.TestID{Path: []string{"rates", "Update a rate"}}},
	}
	assert.Equal(t,
		`bdd-mroh --features features --tags @revenue_test --run '^rates/Update a rate$' --debug`,
		params.rerunCommand(failures))
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand(&bytes.Buffer{})
	require.NoError(t, cmd.ParseFlags([]string{
		"--features", "a.feature,b.feature",
		"--run", "^rates/",
		"--skip", "Export",
		"--stop-on-failure",
	}))
	features, err := cmd.Flags().GetStringSlice("features")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.feature", "b.feature"}, features)

	format, err := cmd.Flags().GetString("format")
	require.NoError(t, err)
	assert.Equal(t, "progress", format)
}

func TestRootCommandRejectsBadRegex(t *testing.T) {
	cmd := newRootCommand(&bytes.Buffer{})
	assert.Error(t, cmd.ParseFlags([]string{"--run", "("}))
}

func TestConsoleTestLogger(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := &ConsoleTestLogger{Out: &buf, DebugOutputOnFailure: true}
	id := framework.TestID{Path: []string{"rates", "Delete a rate"}}

	var debug framework.CapturingLogger
	debug.Printf("step: I delete the rate")

	logger.TestStarted(id)
	logger.TestError(id, errors.New("line one\nline two"))
	logger.TestFinished(id, true, debug.Output())
	logger.TestSkipped(id, "excluded by filter parameters")

	out := buf.String()
	assert.Contains(t, out, "[rates/Delete a rate]\n")
	assert.Contains(t, out, "  line one\n  line two\n")
	assert.Contains(t, out, "FAILED: rates/Delete a rate")
	assert.Contains(t, out, "step: I delete the rate")
	assert.Contains(t, out, "SKIPPED: rates/Delete a rate (excluded by filter parameters)")
}

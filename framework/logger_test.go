package framework

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingLoggerWithPrefix(t *testing.T) {
	var captured CapturingLogger
	LoggerWithPrefix(&captured, "[client] ").Printf("GET %s", "/rates")

	output := captured.Output()
	require.Len(t, output, 1)
	assert.Equal(t, "[client] GET /rates", output[0].Message)

	var buf bytes.Buffer
	output.Dump(&buf, "    DEBUG ")
	assert.Contains(t, buf.String(), "    DEBUG [")
	assert.Contains(t, buf.String(), "] [client] GET /rates\n")
}

func TestPrintResults(t *testing.T) {
	results := Results{
		Tests: []TestResult{
			{TestID: TestID{Path: []string{"rates.feature", "ok"}}},
			{TestID: TestID{Path: []string{"rates.feature", "bad"}}, Errors: []error{errors.New("\nExpected status 201, got 400\n")}},
		},
	}
	results.Failures = results.Tests[1:]

	var buf bytes.Buffer
	PrintResults(&buf, results)
	assert.Contains(t, buf.String(), "1 failed, 1 passed, 0 skipped")
	assert.Contains(t, buf.String(), "* rates.feature/bad\n    Expected status 201, got 400\n")
}

package main

import (
	"regexp"
	"strings"

	"github.com/jestrada-applaudo/bdd-mroh/framework"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"
)

type commandParams struct {
	features      []string
	tags          string
	filters       framework.RegexFilters
	format        string
	envFile       string
	debug         bool
	debugAll      bool
	stopOnFailure bool
}

func (c *commandParams) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVar(&c.features, "features", []string{"features"}, "feature files or directories to run")
	flags.StringVar(&c.tags, "tags", "", "godog tag expression, e.g. \"@revenue_test && ~@wip\"")
	flags.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select scenarios to run")
	flags.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select scenarios not to run")
	flags.StringVar(&c.format, "format", "progress", "godog output format (progress, pretty, junit, cucumber)")
	flags.StringVar(&c.envFile, "env-file", ".env", "file to load environment variables from, if it exists")
	flags.BoolVar(&c.debug, "debug", false, "show debug output for failed scenarios")
	flags.BoolVar(&c.debugAll, "debug-all", false, "show debug output for all scenarios")
	flags.BoolVar(&c.stopOnFailure, "stop-on-failure", false, "stop at the first failed scenario")
}

// rerunCommand returns a shell command that runs only the given failed scenarios with the
// same feature paths and tags.
func (c commandParams) rerunCommand(failures []framework.TestResult) string {
	var b commandBuilder
	b.add(commandName)
	for _, f := range c.features {
		b.add("--features", f)
	}
	if c.tags != "" {
		b.add("--tags", c.tags)
	}
	if c.envFile != ".env" {
		b.add("--env-file", c.envFile)
	}
	for _, f := range failures {
		b.add("--run", "^"+regexp.QuoteMeta(f.TestID.String())+"$")
	}
	if c.debug || c.debugAll {
		b.add("--debug")
	}
	return b.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

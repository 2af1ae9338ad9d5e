package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jestrada-applaudo/bdd-mroh/config"
	"github.com/jestrada-applaudo/bdd-mroh/fakeapi"
	"github.com/jestrada-applaudo/bdd-mroh/fixtures"
	"github.com/jestrada-applaudo/bdd-mroh/framework"
	"github.com/jestrada-applaudo/bdd-mroh/logging"
	"github.com/jestrada-applaudo/bdd-mroh/revenuetests"

	"github.com/charmbracelet/log"
	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/spf13/cobra"
)

const commandName = "bdd-mroh"

var errScenariosFailed = errors.New("some scenarios failed")

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errScenariosFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	var params commandParams
	cmd := &cobra.Command{
		Use:           commandName,
		Short:         "Acceptance tests for the revenue API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuite(params, out)
		},
	}
	params.bind(cmd)
	cmd.AddCommand(newFakeAPICommand())
	return cmd
}

func runSuite(params commandParams, out io.Writer) error {
	m, err := fixtures.Initialize(params.envFile, out)
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Fprintln(out)
	framework.PrintFilterDescription(out, params.filters, params.tags)
	fmt.Fprintln(out, "Running test suite")

	testLogger := &ConsoleTestLogger{
		Out:                  out,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	suite := revenuetests.NewSuite(m, params.filters.AsFilter, testLogger)
	status := suite.Run(godog.Options{
		Format:        params.format,
		Paths:         params.features,
		Tags:          params.tags,
		Strict:        true,
		StopOnFailure: params.stopOnFailure,
		Concurrency:   1,
		Output:        colors.Colored(out),
	})

	results := suite.Results()
	fmt.Fprintln(out)
	framework.PrintResults(out, results)
	if status == 0 && results.OK() {
		return nil
	}
	if len(results.Failures) > 0 {
		fmt.Fprintf(out, "\nTo rerun the failed scenarios:\n  %s\n", params.rerunCommand(results.Failures))
	}
	if status == 2 {
		return fmt.Errorf("%w: invalid godog options", config.ErrConfig)
	}
	return errScenariosFailed
}

func newFakeAPICommand() *cobra.Command {
	var (
		addr   string
		token  string
		prefix string
		debug  bool
	)
	cmd := &cobra.Command{
		Use:   "fake-api",
		Short: "Serve an in-memory fake of the revenue API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				return fmt.Errorf("%w: --token or API_TOKEN is required", config.ErrConfig)
			}
			level := log.InfoLevel
			if debug {
				level = log.DebugLevel
			}
			logger := logging.New(cmd.ErrOrStderr(), level)

			api := fakeapi.NewServer(token, fakeapi.WithPathPrefix(prefix), fakeapi.WithLogger(logger))
			api.SeedDefaultReferences()
			server, err := api.Start(addr)
			if err != nil {
				return err
			}
			logger.Info("Fake API listening", "addr", server.Addr, "prefix", api.PathPrefix())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			<-ctx.Done()
			logger.Info("Shutting down")
			return server.Shutdown(context.Background())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", ":8085", "address to listen on")
	flags.StringVar(&token, "token", os.Getenv("API_TOKEN"), "bearer token to accept (default $API_TOKEN)")
	flags.StringVar(&prefix, "prefix", fakeapi.DefaultPathPrefix, "path prefix of the API")
	flags.BoolVar(&debug, "debug", false, "log every request")
	return cmd
}

// Package framework contains the low-level test context and reporting infrastructure that
// the acceptance steps are built on, independent of the revenue API being tested.
//
// The general model is:
//
// 1. An Environment is created once per run. It owns the Results and the TestLogger that
// reports progress to the console.
//
// 2. Each scenario gets its own Context, which is similar to Go's *testing.T: it
// implements Errorf and FailNow, so assertions from the assert and require packages can be
// made against it, and it captures debug output that is shown only if requested.
//
// 3. Steps run through Context.Step, which turns a FailNow into an ordinary error so that
// the BDD runner can stop the scenario at the first failing step.
package framework

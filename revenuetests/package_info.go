// Package revenuetests contains the acceptance steps for the revenue API and the glue that
// runs them under godog.
//
// Each step is a plain Go function taking a *Scenario followed by its captured arguments.
// Composite steps call other steps directly, so a failed require in an inner step stops the
// whole chain. Suite-level state (configuration, the API client, the test revision, and the
// ids of everything created) belongs to the fixtures package.
package revenuetests

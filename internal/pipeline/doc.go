// Package pipeline executes ordered step sequences with a fail-fast policy.
// A Definition names the steps to run; the Runner resolves them from a step
// registry, runs them one at a time in declaration order, and aborts on the
// first failure so later steps never observe partial state. ExitCode maps a
// run error back to the process exit status, keeping an external build
// tool's status intact.
package pipeline

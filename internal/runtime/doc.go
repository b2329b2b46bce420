// Package runtime executes the I/O side of a wizard step: loading hierarchy
// options for a step, submitting a candidate payload, and running queued
// effects whose results are applied last-request-wins.
package runtime

/*
Package observability turns wizard lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks; combine them with Chain and pass the
result to stepwise.WithLifecycleHooks.
*/
package observability

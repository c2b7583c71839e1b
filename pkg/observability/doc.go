/*
Package observability turns router lifecycle events into logs and metrics.

Hooks returned here plug into turnstack.WithLifecycleHooks. Several hook sets can be
merged with Combine, e.g. structured logging plus Prometheus counters.
*/
package observability

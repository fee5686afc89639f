/*
Package observability turns compiler lifecycle hooks into Prometheus metrics and
OpenTelemetry spans.

Both adapters expose Hooks, which return a domain.LifecycleHooks ready to be merged
and passed to lattice.WithLifecycleHooks.
*/
package observability

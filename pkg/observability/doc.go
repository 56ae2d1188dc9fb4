/*
Package observability turns engine lifecycle events into Prometheus metrics and
structured log lines.

Both are exposed as domain.LifecycleHooks so they plug into the engine through
runtime.WithLifecycleHooks. Use Combine to attach several at once.
*/
package observability

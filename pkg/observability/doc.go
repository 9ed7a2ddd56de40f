/*
Package observability turns driver lifecycle hooks into metrics and logs.

[Metrics] registers Prometheus collectors and exposes them as domain.Hooks;
[Logging] writes the same events to a slog.Logger. Combine both with
domain.MergeHooks and pass the result to firestream.WithHooks.
*/
package observability

// Package prometheus exposes tokenkit engine metrics to Prometheus.
//
// [NewCollector] returns a prometheus.Collector that reads the engine snapshot on every
// scrape. Counter names are prefixed tokenkit_ and end in _total; the single histogram is
// tokenkit_verify_latency_seconds. [Handler] serves the collector from a private registry.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry; callers decide where to mount.
//   - Mutate engine state.
package prometheus

/*
Package metrics defines contained's Prometheus metrics.

A run is a short-lived process, so nothing is served over HTTP. The metrics
live in their own Registry and are written once at the end of a run with
WriteTextfile, in the format read by the node exporter's textfile collector:

	contained run --metrics-file /var/lib/node_exporter/contained.prom make

# Metrics

	contained_engine_requests_total{operation,outcome}     counter
	contained_engine_request_duration_seconds{operation}   histogram
	contained_stream_bytes_total{direction}                counter
	contained_run_duration_seconds{runner}                 histogram
	contained_run_exit_code{runner}                        gauge
	contained_runs_failed_total{stage}                     counter

Timer measures a duration and records it into a histogram:

	timer := metrics.NewTimer()
	err := do()
	timer.ObserveDurationVec(metrics.EngineRequestDuration, "create")
*/
package metrics

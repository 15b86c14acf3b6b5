package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds contained's metrics. It is separate from the default
	// registry so a textfile export carries only run metrics.
	Registry = prometheus.NewRegistry()

	// Engine metrics
	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contained_engine_requests_total",
			Help: "Total number of engine requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contained_engine_request_duration_seconds",
			Help:    "Engine request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Stream metrics
	StreamBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contained_stream_bytes_total",
			Help: "Bytes forwarded over the attach stream by direction",
		},
		[]string{"direction"},
	)

	// Run metrics
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contained_run_duration_seconds",
			Help:    "Wall time of a container run by runner",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 1800},
		},
		[]string{"runner"},
	)

	RunExitCode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contained_run_exit_code",
			Help: "Exit code of the last container run by runner",
		},
		[]string{"runner"},
	)

	RunsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contained_runs_failed_total",
			Help: "Runs that failed before an exit code was known, by stage",
		},
		[]string{"stage"},
	)
)

func init() {
	Registry.MustRegister(EngineRequestsTotal)
	Registry.MustRegister(EngineRequestDuration)
	Registry.MustRegister(StreamBytesTotal)
	Registry.MustRegister(RunDuration)
	Registry.MustRegister(RunExitCode)
	Registry.MustRegister(RunsFailed)
}

// WriteTextfile writes the registry in the node-exporter textfile format
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

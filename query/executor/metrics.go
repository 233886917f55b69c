package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MustRegisterMetrics registers the pipeline metrics on registry.
// It panics if metrics with the same names are already registered.
func MustRegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(operationCounter, processDuration)
}

func sampleOperation(kind Kind, err error) {
	operationCounter.With(prometheus.Labels{
		"kind":   kind.String(),
		"status": status(err),
	}).Inc()
}

func sampleProcess(path string, elapsed time.Duration, err error) {
	processDuration.With(prometheus.Labels{
		"path":   path,
		"status": status(err),
	}).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlkit_pipeline_operations_total",
			Help: "Count of pipeline operations by kind and outcome",
		},
		[]string{"kind", "status"},
	)
	processDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlkit_pipeline_process_duration_seconds",
			Help:    "Duration of pipeline processing",
			Buckets: prometheus.ExponentialBuckets(.001, 2, 16),
		},
		[]string{"path", "status"},
	)
)

package cli

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	execDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emails_executor_duration_seconds",
			Help:    "Duration of external command executions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command", "status"},
	)

	execTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_executor_executions_total",
			Help: "Number of external command executions",
		},
		[]string{"command", "status"},
	)
)

func init() {
	prometheus.MustRegister(execDuration, execTotal)
}

func recordExecution(command string, status string, duration float64) {
	execDuration.WithLabelValues(command, status).Observe(duration)
	execTotal.WithLabelValues(command, status).Inc()
}

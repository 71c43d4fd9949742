package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Send outcomes.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

var (
	emailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Number of email send attempts by email type and outcome",
		},
		[]string{"type", "status"},
	)

	sendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emails_send_duration_seconds",
			Help:    "Duration of email composition and hand-off to the transport",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(emailsSent, sendDuration)
}

// ObserveSend records one send attempt.
func ObserveSend(emailType string, err error, took time.Duration) {
	status := StatusSent
	if err != nil {
		status = StatusFailed
	}
	emailsSent.WithLabelValues(emailType, status).Inc()
	sendDuration.WithLabelValues(emailType).Observe(took.Seconds())
}

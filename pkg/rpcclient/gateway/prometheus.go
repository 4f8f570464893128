package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	kindRead  = "read"
	kindWrite = "write"
)

// Metrics for monitoring service.
var (
	calls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of contract calls",
			Name:      "calls_total",
			Subsystem: "gateway",
			Namespace: "bonafide",
		},
		[]string{"kind", "method", "result"},
	)
	confirmationTimes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Help:      "Time from transaction submission to its inclusion",
			Name:      "tx_confirmation_seconds",
			Namespace: "bonafide",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(
		calls,
		confirmationTimes,
	)
}

func countCall(kind string, method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	calls.WithLabelValues(kind, method, result).Inc()
}

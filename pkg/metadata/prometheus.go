package metadata

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultFetched = "fetched"
	resultCached  = "cached"
	resultError   = "error"
)

// Metrics for monitoring service.
var fetches = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Help:      "Number of metadata document requests",
		Name:      "fetch_total",
		Subsystem: "metadata",
		Namespace: "bonafide",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(fetches)
}

func countFetch(result string) {
	fetches.WithLabelValues(result).Inc()
}

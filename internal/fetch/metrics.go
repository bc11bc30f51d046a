package fetch

import "github.com/prometheus/client_golang/prometheus"

var (
	filesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ovid",
			Subsystem: "fetch",
			Name:      "files_total",
			Help:      "Artifacts processed by pull, by result",
		},
		[]string{"result"},
	)

	bytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ovid",
			Subsystem: "fetch",
			Name:      "bytes_total",
			Help:      "Bytes downloaded into verified artifacts",
		},
	)

	retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ovid",
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Download attempts retried after a transient failure",
		},
	)
)

func init() {
	prometheus.MustRegister(filesTotal, bytesTotal, retriesTotal)
}

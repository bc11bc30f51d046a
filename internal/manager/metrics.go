package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ovid",
			Name:      "generations_total",
			Help:      "Generations finished, by pipeline and outcome kind",
		},
		[]string{"pipeline", "outcome"},
	)

	generationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ovid",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of pipeline runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"pipeline"},
	)

	busyRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ovid",
			Name:      "generation_busy_rejections_total",
			Help:      "Requests rejected because no device slot freed up in time",
		},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, generationSeconds, busyRejections)
}

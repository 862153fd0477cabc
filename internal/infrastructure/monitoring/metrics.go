package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ReasonNotFound  = "not_found"
	ReasonDuplicate = "duplicate"
	ReasonNoChanges = "no_changes"
)

type BusinessMetrics struct {
	CustomersTotal   prometheus.Gauge
	RejectionsTotal  *prometheus.CounterVec
	StatsJobDuration prometheus.Histogram
}

var Business = BusinessMetrics{
	CustomersTotal: promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "customer_service_customers_total",
			Help: "Number of stored customers at the last statistics run.",
		},
	),
	RejectionsTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customer_service_rejections_total",
			Help: "Customer requests rejected by business rules.",
		},
		[]string{"reason"},
	),
	StatsJobDuration: promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "customer_service_stats_job_duration_seconds",
			Help:    "Duration of the customer statistics job.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
	),
}

func RecordRejection(reason string) {
	Business.RejectionsTotal.WithLabelValues(reason).Inc()
}

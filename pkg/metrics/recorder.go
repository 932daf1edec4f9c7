// Package metrics exposes the purchase workflow counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder struct {
	cancellations *prometheus.CounterVec
	warnings      *prometheus.CounterVec
	duration      prometheus.Histogram
}

func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchase_cancellations_total",
			Help: "Purchase cancellations by initiator and outcome.",
		}, []string{"initiated_by", "result"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "purchase_cleanup_warnings_total",
			Help: "Best-effort steps that failed and were skipped.",
		}, []string{"step"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "purchase_cancellation_duration_seconds",
			Help:    "Wall time of a full cancellation run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.cancellations, r.warnings, r.duration)
	return r
}

func (r *Recorder) ObserveCancellation(initiatedBy, result string, d time.Duration) {
	r.cancellations.WithLabelValues(initiatedBy, result).Inc()
	r.duration.Observe(d.Seconds())
}

func (r *Recorder) CleanupWarning(step string) {
	r.warnings.WithLabelValues(step).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

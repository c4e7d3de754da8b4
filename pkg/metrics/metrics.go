package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Dispatcher metrics
	DispatcherRuns        prometheus.Counter
	DispatcherRunDuration prometheus.Histogram
	EventsProcessed       prometheus.Counter
	EventsSkipped         *prometheus.CounterVec

	// Delivery metrics
	Notifications   *prometheus.CounterVec
	DedupSuppressed prometheus.Counter
	SendDuration    *prometheus.HistogramVec

	// Binding metrics
	BindingCodesIssued prometheus.Counter
	BindingCompleted   prometheus.Counter
	BindingRejected    *prometheus.CounterVec
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		DispatcherRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatcher_runs_total",
			Help:      "Total number of dispatcher runs",
		}),
		DispatcherRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatcher_run_duration_seconds",
			Help:      "Time spent in one dispatcher run",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		EventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Total number of deadline events evaluated",
		}),
		EventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Deadline events skipped before rule evaluation",
		}, []string{"reason"}),
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		DedupSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_deduplicated_total",
			Help:      "Sends suppressed by the daily dedup ledger",
		}),
		SendDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Time spent in external channel calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"channel"}),
		BindingCodesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "binding_codes_issued_total",
			Help:      "Verification codes generated",
		}),
		BindingCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "binding_completed_total",
			Help:      "Chat identities successfully bound",
		}),
		BindingRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "binding_rejected_total",
			Help:      "Code submissions rejected by cause",
		}, []string{"cause"}),
	}
}

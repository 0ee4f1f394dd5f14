// Package monitoring collects CRM statistics and exposes Prometheus metrics.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/estate-crm/internal/model"
)

type metrics struct {
	importsTotal    *prometheus.CounterVec
	importedRecords prometheus.Counter
	importLatency   prometheus.Histogram
	editsTotal      *prometheus.CounterVec
	commentsTotal   *prometheus.CounterVec
	realtimeEvents  *prometheus.CounterVec

	clients       *prometheus.GaugeVec
	activityTotal prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		importsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "imports_total",
			Help:      "Total number of import commits by result.",
		}, []string{"result"}),
		importedRecords: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "imported_records_total",
			Help:      "Total number of client records inserted by imports.",
		}),
		importLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crm",
			Name:      "import_duration_seconds",
			Help:      "Latency distribution for import commits.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		editsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "field_edits_total",
			Help:      "Total number of inline field edits by field and result.",
		}, []string{"field", "result"}),
		commentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "comments_total",
			Help:      "Total number of calling comments by result.",
		}, []string{"result"}),
		realtimeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "realtime_events_total",
			Help:      "Total number of change events merged into client grids.",
		}, []string{"type"}),
		clients: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "crm",
			Name:      "clients",
			Help:      "Current number of clients by dimension and value.",
		}, []string{"dimension", "value"}),
		activityTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "crm",
			Name:      "activity_window_entries",
			Help:      "Activity log entries within the stats lookback window.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// ObserveImport records an import commit.
func ObserveImport(inserted int, err error, elapsed time.Duration) {
	m := getMetrics()
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.importsTotal.WithLabelValues(result).Inc()
	m.importedRecords.Add(float64(inserted))
	m.importLatency.Observe(elapsed.Seconds())
}

// ObserveEdit records an inline field edit outcome.
func ObserveEdit(field model.Field, result string) {
	getMetrics().editsTotal.WithLabelValues(string(field), result).Inc()
}

// ObserveComment records a calling-comment outcome.
func ObserveComment(result string) {
	getMetrics().commentsTotal.WithLabelValues(result).Inc()
}

// ObserveRealtime records a change event merged into a grid.
func ObserveRealtime(t model.ChangeType) {
	getMetrics().realtimeEvents.WithLabelValues(string(t)).Inc()
}

// Publish copies a snapshot into the gauges.
func Publish(snap *Snapshot) {
	m := getMetrics()
	m.clients.Reset()
	m.clients.WithLabelValues("total", "all").Set(float64(snap.ClientsTotal))
	for k, v := range snap.ByLeadStage {
		m.clients.WithLabelValues("lead_stage", k).Set(float64(v))
	}
	for k, v := range snap.ByLeadType {
		m.clients.WithLabelValues("lead_type", k).Set(float64(v))
	}
	for k, v := range snap.ByDealStatus {
		m.clients.WithLabelValues("deal_status", k).Set(float64(v))
	}
	m.activityTotal.Set(float64(snap.ActivityTotal))
}

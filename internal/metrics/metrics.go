package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Business metrics
	fetchesTotal     *prometheus.CounterVec
	fetchErrorsTotal *prometheus.CounterVec
	triggersTotal    *prometheus.CounterVec
	cycleDuration    *prometheus.HistogramVec
	watchEntries     *prometheus.GaugeVec
	wsClients        prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)

	// Business metrics
	r.fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "money_fetches_total",
			Help: "Total number of upstream quote fetches",
		},
		[]string{"class", "kind"},
	)
	r.fetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "money_fetch_errors_total",
			Help: "Total number of failed upstream quote fetches",
		},
		[]string{"class", "kind"},
	)
	r.triggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "money_triggers_total",
			Help: "Total number of monitor triggers delivered",
		},
		[]string{"class", "kind"},
	)
	r.cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "money_cycle_duration_seconds",
			Help:    "Scheduled evaluation cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
	r.watchEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "money_watch_entries",
			Help: "Number of entries per watch category",
		},
		[]string{"category", "class"},
	)
	r.wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "money_ws_clients",
			Help: "Number of connected websocket clients",
		},
	)

	reg.MustRegister(r.fetchesTotal)
	reg.MustRegister(r.fetchErrorsTotal)
	reg.MustRegister(r.triggersTotal)
	reg.MustRegister(r.cycleDuration)
	reg.MustRegister(r.watchEntries)
	reg.MustRegister(r.wsClients)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordFetch records one upstream fetch attempt.
func (r *Registry) RecordFetch(class, kind string, err error) {
	r.fetchesTotal.WithLabelValues(class, kind).Inc()
	if err != nil {
		r.fetchErrorsTotal.WithLabelValues(class, kind).Inc()
	}
}

// RecordTrigger records a delivered monitor trigger.
func (r *Registry) RecordTrigger(class, kind string) {
	r.triggersTotal.WithLabelValues(class, kind).Inc()
}

// RecordCycle records a scheduled cycle completion.
func (r *Registry) RecordCycle(job string, duration float64) {
	r.cycleDuration.WithLabelValues(job).Observe(duration)
}

// SetWatchEntries sets the entry count for one watch category.
func (r *Registry) SetWatchEntries(category, class string, count int) {
	r.watchEntries.WithLabelValues(category, class).Set(float64(count))
}

// SetWSClients sets the connected websocket client count.
func (r *Registry) SetWSClients(count int) {
	r.wsClients.Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

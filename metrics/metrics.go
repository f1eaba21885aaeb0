// Package metrics exposes Prometheus metrics for analysis runs and the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/segment-olap/sales"
)

const namespace = "segment_olap"

// Metrics holds every collector, registered on its own registry so tests
// and multiple servers in one process don't collide.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	factRows     prometheus.Counter
	anomalies    *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by outcome",
		}, []string{"outcome"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full analysis run",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		factRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fact_rows_total",
			Help:      "Enriched sale rows processed",
		}),
		anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "value_anomalies_total",
			Help:      "Values absorbed into missing, by kind",
		}, []string{"kind"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status class",
		}, []string{"route", "status"}),
	}
}

// ObserveRun implements sales.Recorder.
func (m *Metrics) ObserveRun(d sales.Diagnostics, elapsed time.Duration, err error) {
	if err != nil {
		m.runsTotal.WithLabelValues("error").Inc()
		return
	}
	m.runsTotal.WithLabelValues("ok").Inc()
	m.runDuration.Observe(elapsed.Seconds())
	m.factRows.Add(float64(d.Rows))

	m.anomalies.WithLabelValues("unparsable_date").Add(float64(d.UnparsableDates))
	m.anomalies.WithLabelValues("non_numeric_amount").Add(float64(d.NonNumericAmounts))
	m.anomalies.WithLabelValues("unmatched_customer").Add(float64(d.UnmatchedCustomers))
	m.anomalies.WithLabelValues("unmatched_product").Add(float64(d.UnmatchedProducts))
	m.anomalies.WithLabelValues("duplicate_customer_key").Add(float64(d.DuplicateCustomerKeys))
	m.anomalies.WithLabelValues("duplicate_product_key").Add(float64(d.DuplicateProductKeys))
}

// ObserveRequest counts one API request. status is the HTTP status code.
func (m *Metrics) ObserveRequest(route string, status int) {
	m.httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var _ sales.Recorder = (*Metrics)(nil)

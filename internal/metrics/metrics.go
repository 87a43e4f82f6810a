// Package metrics exposes the Prometheus collectors of the report service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/coachreports/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coachreports"

// Manager owns a registry and the collectors registered on it.
type Manager struct {
	registry *prometheus.Registry

	fetches     *prometheus.CounterVec
	mails       *prometheus.CounterVec
	exports     *prometheus.CounterVec
	requests    *prometheus.CounterVec
	aggregation prometheus.Histogram
}

// NewManager registers the report collectors together with the Go runtime and process collectors.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newManager(reg)
}

// NewTestManager returns a Manager without the runtime collectors.
func NewTestManager() *Manager {
	return newManager(prometheus.NewRegistry())
}

func newManager(reg *prometheus.Registry) *Manager {
	factory := promauto.With(reg)
	return &Manager{
		registry: reg,
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_fetches_total",
			Help:      "Raw record fetches by outcome.",
		}, []string{"outcome"}),
		mails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_mails_total",
			Help:      "Report mailings by kind and outcome.",
		}, []string{"kind", "outcome"}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_exports_total",
			Help:      "Chart image exports by outcome.",
		}, []string{"outcome"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served HTTP requests by method and status.",
		}, []string{"method", "status"}),
		aggregation: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_aggregation_seconds",
			Help:      "Time spent aggregating the raw records of one report.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// ObserveFetch counts one raw record fetch.
func (m *Manager) ObserveFetch(success bool) {
	m.fetches.WithLabelValues(outcome(success)).Inc()
}

// ObserveMail counts one mailing attempt.
func (m *Manager) ObserveMail(o report.MailOutcome) {
	m.mails.WithLabelValues(o.Kind, outcome(o.Success)).Inc()
}

// ObserveExport counts one chart export.
func (m *Manager) ObserveExport(o report.ExportOutcome) {
	m.exports.WithLabelValues(string(o)).Inc()
}

// ObserveRequest counts one served HTTP request.
func (m *Manager) ObserveRequest(method string, status int) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// ObserveAggregation records how long building one report took.
func (m *Manager) ObserveAggregation(d time.Duration) {
	m.aggregation.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

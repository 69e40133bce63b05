// Package prometheus implements metrics.Collector on top of the Prometheus
// client library.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports ledger service metrics to Prometheus. Register it with
// prometheus.MustRegister; it implements prometheus.Collector.
type Collector struct {
	operations       *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	snapshotSaves    *prometheus.CounterVec
	snapshotLatency  prometheus.Histogram
	accountsTotal    prometheus.Gauge
	accountsActive   prometheus.Gauge
	balancesTotal    prometheus.Gauge
}

// NewCollector creates a Prometheus collector under the given namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Total number of ledger operations by outcome",
			},
			[]string{"op", "result"},
		),
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Ledger operation latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		snapshotSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_saves_total",
				Help:      "Total number of snapshot save attempts",
			},
			[]string{"result"},
		),
		snapshotLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "snapshot_save_duration_seconds",
				Help:      "Snapshot save latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		accountsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "accounts_total",
				Help:      "Number of registered accounts",
			},
		),
		accountsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "accounts_active",
				Help:      "Number of accounts not frozen",
			},
		),
		balancesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "balances_total",
				Help:      "Sum of all account balances",
			},
		),
	}
}

// RecordOperation records one ledger operation.
func (c *Collector) RecordOperation(op, result string, duration time.Duration) {
	c.operations.WithLabelValues(op, result).Inc()
	c.operationLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHTTPRequest records one handled HTTP request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSnapshotSave records a persistence save attempt.
func (c *Collector) RecordSnapshotSave(success bool, duration time.Duration) {
	result := "ok"
	if !success {
		result = "error"
	}
	c.snapshotSaves.WithLabelValues(result).Inc()
	c.snapshotLatency.Observe(duration.Seconds())
}

// SetAccountTotals updates the account population gauges.
func (c *Collector) SetAccountTotals(total, active int, totalBalance float64) {
	c.accountsTotal.Set(float64(total))
	c.accountsActive.Set(float64(active))
	c.balancesTotal.Set(totalBalance)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.operations.Describe(ch)
	c.operationLatency.Describe(ch)
	c.httpRequests.Describe(ch)
	c.httpLatency.Describe(ch)
	c.snapshotSaves.Describe(ch)
	c.snapshotLatency.Describe(ch)
	c.accountsTotal.Describe(ch)
	c.accountsActive.Describe(ch)
	c.balancesTotal.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.operations.Collect(ch)
	c.operationLatency.Collect(ch)
	c.httpRequests.Collect(ch)
	c.httpLatency.Collect(ch)
	c.snapshotSaves.Collect(ch)
	c.snapshotLatency.Collect(ch)
	c.accountsTotal.Collect(ch)
	c.accountsActive.Collect(ch)
	c.balancesTotal.Collect(ch)
}

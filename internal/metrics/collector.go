// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pinmanager"

// Collector is a prometheus.Collector that collects metrics about pin
// operations and the sticky flag calls they make.
type Collector struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	stickyCalls       *prometheus.CounterVec
	inflightRequests  prometheus.Gauge
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "The number of handled pin operations by outcome.",
			}, []string{"operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "operation_duration_seconds",
				Help:      "The time taken to handle a pin operation.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			}, []string{"operation"},
		),
		stickyCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sticky_calls_total",
				Help:      "The number of sticky flag calls made to pools.",
			}, []string{"action", "result"},
		),
		inflightRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "inflight_requests",
				Help:      "The number of API requests being served.",
			},
		),
	}
}

// RecordOperation records the outcome and duration of a pin operation.
func (c *Collector) RecordOperation(operation, result string, elapsed time.Duration) {
	c.operations.WithLabelValues(operation, result).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordStickyCall records the outcome of a sticky flag call.
func (c *Collector) RecordStickyCall(action, result string) {
	c.stickyCalls.WithLabelValues(action, result).Inc()
}

// TrackRequest counts an API request as in flight until the returned func
// is called.
func (c *Collector) TrackRequest() func() {
	c.inflightRequests.Inc()
	return c.inflightRequests.Dec
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.operations.Describe(ch)
	c.operationDuration.Describe(ch)
	c.stickyCalls.Describe(ch)
	c.inflightRequests.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.operations.Collect(ch)
	c.operationDuration.Collect(ch)
	c.stickyCalls.Collect(ch)
	c.inflightRequests.Collect(ch)
}

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// outcome is committed, invalid, conflict, failed or busy
	CheckoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_checkout_total",
			Help: "Checkouts by sale type and outcome",
		},
		[]string{"kind", "outcome"},
	)

	CheckoutAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pos_checkout_attempts",
			Help:    "Transaction attempts needed per checkout",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	CheckoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pos_checkout_duration_seconds",
			Help:    "Checkout latency including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_transfers_total",
			Help: "Cross-branch stock transfers by outcome",
		},
		[]string{"outcome"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_websocket_clients",
			Help: "Connected realtime terminals",
		},
	)

	LowStockItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_low_stock_items",
			Help: "Inventory records at or below their minimum quantity",
		},
	)

	StockValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_stock_value",
			Help: "Inventory value at cost across all branches",
		},
	)

	HostCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_host_cpu_percent",
			Help: "Host CPU utilisation",
		},
	)

	HostMemoryPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_host_memory_percent",
			Help: "Host memory utilisation",
		},
	)
)

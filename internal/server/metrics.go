package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the billing pipeline counters exposed on /metrics.
type Metrics struct {
	requestDuration   *prometheus.HistogramVec
	invoicesGenerated prometheus.Counter
	usageFetches      *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "neonmeter",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		invoicesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neonmeter",
			Name:      "invoices_generated_total",
			Help:      "Invoices created by billing runs.",
		}),
		usageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neonmeter",
			Name:      "usage_fetches_total",
			Help:      "Per-company usage fetch outcomes.",
		}, []string{"outcome"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neonmeter",
			Name:      "webhook_events_total",
			Help:      "Payment webhook events by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
	prometheus.MustRegister(
		m.requestDuration,
		m.invoicesGenerated,
		m.usageFetches,
		m.webhookEvents,
	)
	return m
}

func MetricsMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

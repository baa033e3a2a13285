// Package metrics exposes Prometheus instruments for the alert pipeline, the
// vote ledger and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcomes recorded on geosafe_alert_cycles_total.
const (
	OutcomeIgnored      = "ignored"
	OutcomeDuplicate    = "duplicate"
	OutcomeNoRecipients = "no_recipients"
	OutcomeDispatched   = "dispatched"
	OutcomeFailed       = "failed"
)

// Metrics groups every instrument. A nil *Metrics is valid and records
// nothing, which keeps unit tests free of registry setup.
type Metrics struct {
	alertCycles        *prometheus.CounterVec
	cycleDuration      *prometheus.HistogramVec
	scanFailures       prometheus.Counter
	alertRecipients    prometheus.Histogram
	pushTokens         *prometheus.CounterVec
	pushBatches        *prometheus.CounterVec
	votes              *prometheus.CounterVec
	streamConnections  prometheus.Gauge
	httpRequestsTotal  *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		alertCycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosafe_alert_cycles_total",
				Help: "Alert pipeline invocations by outcome",
			},
			[]string{"outcome"},
		),
		cycleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geosafe_alert_cycle_duration_seconds",
				Help:    "Wall time of fired alert cycles by outcome",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		scanFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "geosafe_directory_scan_failures_total",
				Help: "Covering-box scans that failed or timed out",
			},
		),
		alertRecipients: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geosafe_alert_recipients",
				Help:    "Recipients per dispatched alert",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		pushTokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosafe_push_tokens_total",
				Help: "Push deliveries per token by result",
			},
			[]string{"result"},
		),
		pushBatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosafe_push_batches_total",
				Help: "Multicast batches by result",
			},
			[]string{"result"},
		),
		votes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosafe_votes_total",
				Help: "Vote attempts by ballot and result",
			},
			[]string{"vote_type", "result"},
		),
		streamConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "geosafe_stream_connections",
				Help: "Open report stream connections",
			},
		),
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosafe_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geosafe_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *Metrics) AlertCycle(outcome string) {
	if m == nil {
		return
	}
	m.alertCycles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CycleDuration(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ScanFailures(n int) {
	if m == nil || n == 0 {
		return
	}
	m.scanFailures.Add(float64(n))
}

func (m *Metrics) Recipients(n int) {
	if m == nil {
		return
	}
	m.alertRecipients.Observe(float64(n))
}

func (m *Metrics) PushTokens(success, failure int) {
	if m == nil {
		return
	}
	m.pushTokens.WithLabelValues("success").Add(float64(success))
	m.pushTokens.WithLabelValues("failure").Add(float64(failure))
}

// PushBatch records one batch; result is "ok", "retried" or "failed".
func (m *Metrics) PushBatch(result string) {
	if m == nil {
		return
	}
	m.pushBatches.WithLabelValues(result).Inc()
}

func (m *Metrics) Vote(voteType, result string) {
	if m == nil {
		return
	}
	m.votes.WithLabelValues(voteType, result).Inc()
}

func (m *Metrics) StreamConnected() {
	if m == nil {
		return
	}
	m.streamConnections.Inc()
}

func (m *Metrics) StreamDisconnected() {
	if m == nil {
		return
	}
	m.streamConnections.Dec()
}

// GinMiddleware records request counts and latency keyed by the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestSeconds.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

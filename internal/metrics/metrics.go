package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adgen",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adgen",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adgen",
			Subsystem: "generation",
			Name:      "attempts_total",
			Help:      "Generation attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "adgen",
			Subsystem: "generation",
			Name:      "provider_duration_seconds",
			Help:      "Duration of provider generation calls including upload.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 11), // 250ms to ~4m
		},
		[]string{"kind"},
	)

	tokensDebited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adgen",
		Subsystem: "ledger",
		Name:      "tokens_debited_total",
		Help:      "Tokens debited for generations.",
	})

	tokensRefunded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adgen",
		Subsystem: "ledger",
		Name:      "tokens_refunded_total",
		Help:      "Tokens returned by refunds.",
	})

	refundFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adgen",
		Subsystem: "ledger",
		Name:      "refund_failures_total",
		Help:      "Refund transactions that failed and need reconciliation.",
	})

	pendingRefunds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adgen",
		Subsystem: "ledger",
		Name:      "pending_refunds",
		Help:      "Unresolved refunds waiting for retry.",
	})
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		generations,
		generationDuration,
		tokensDebited,
		tokensRefunded,
		refundFailures,
		pendingRefunds,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry for scraping.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records request counts and latency by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func ObserveGeneration(kind, outcome string) {
	generations.WithLabelValues(kind, outcome).Inc()
}

func ObserveProviderDuration(kind string, d time.Duration) {
	generationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func AddTokensDebited(n int) { tokensDebited.Add(float64(n)) }

func AddTokensRefunded(n int) { tokensRefunded.Add(float64(n)) }

func IncRefundFailures() { refundFailures.Inc() }

func SetPendingRefunds(n int64) { pendingRefunds.Set(float64(n)) }

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported on /metrics.
var Registry = prometheus.NewRegistry()

var (
	httpRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_platform_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice_platform_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	providerRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_platform_provider_requests_total",
			Help: "Total number of calls to external providers",
		},
		[]string{"provider", "op", "outcome"},
	)

	providerRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice_platform_provider_request_duration_seconds",
			Help:    "External provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "op"},
	)

	provisioningTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_platform_provisioning_total",
			Help: "Phone number provisioning attempts by final state and failing step",
		},
		[]string{"state", "step"},
	)

	voiceSyncItemsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_platform_voice_sync_items_total",
			Help: "Voices processed by catalog sync by outcome",
		},
		[]string{"outcome"},
	)

	voiceSyncDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voice_platform_voice_sync_duration_seconds",
			Help:    "Full catalog sync duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	reconcileRepairsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_platform_reconcile_repairs_total",
			Help: "Rows repaired by reconciliation sweeps",
		},
		[]string{"sweep"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordProviderCall(provider, op string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerRequestsTotal.WithLabelValues(provider, op, outcome).Inc()
	providerRequestDuration.WithLabelValues(provider, op).Observe(duration.Seconds())
}

func RecordProvisioning(state, step string) {
	provisioningTotal.WithLabelValues(state, step).Inc()
}

func RecordVoiceSync(successful, failed, skipped int, duration time.Duration) {
	voiceSyncItemsTotal.WithLabelValues("successful").Add(float64(successful))
	voiceSyncItemsTotal.WithLabelValues("failed").Add(float64(failed))
	voiceSyncItemsTotal.WithLabelValues("skipped").Add(float64(skipped))
	voiceSyncDuration.Observe(duration.Seconds())
}

func RecordRepairs(sweep string, n int) {
	reconcileRepairsTotal.WithLabelValues(sweep).Add(float64(n))
}

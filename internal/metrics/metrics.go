package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imgmeta",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "imgmeta",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	handlerInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imgmeta",
		Name:      "handler_invocations_total",
		Help:      "Metadata handler invocations by handler and outcome.",
	}, []string{"handler", "outcome"})

	scannedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "imgmeta",
		Name:      "scanned_records_total",
		Help:      "Records folded into statistics.",
	})

	initOnce sync.Once
)

// InitMetrics registers collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	initOnce.Do(func() {
		for _, c := range []prometheus.Collector{httpRequests, httpDuration, handlerInvocations, scannedRecords} {
			if err := prometheus.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveHandler counts one handler invocation. A nil err is recorded as "ok".
func ObserveHandler(handler string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	handlerInvocations.WithLabelValues(handler, outcome).Inc()
}

// AddScanned counts records consumed by a statistics pass.
func AddScanned(n int) {
	scannedRecords.Add(float64(n))
}

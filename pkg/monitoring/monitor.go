package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// QuizSubmissions counts scored submissions by verdict (passed | failed)
	QuizSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Scored quiz submissions by verdict",
		},
		[]string{"verdict"},
	)

	// CertificateRequests counts certificate requests by outcome
	// (issued | existing | manual | ineligible | conflict)
	CertificateRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certificate_requests_total",
			Help: "Certificate requests by outcome",
		},
		[]string{"outcome"},
	)

	// WriteConflicts counts retried uniqueness collisions by kind
	// (attempt_number | verification_code | certificate)
	WriteConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "write_conflicts_total",
			Help: "Uniqueness collisions retried internally",
		},
		[]string{"kind"},
	)

	initOnce sync.Once
)

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(QuizSubmissions)
		prometheus.MustRegister(CertificateRequests)
		prometheus.MustRegister(WriteConflicts)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

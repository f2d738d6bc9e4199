package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imaginarium",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imaginarium",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// kind is generate, refine-image or refine-prompt.
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imaginarium",
			Name:      "generations_total",
			Help:      "Model calls by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imaginarium",
			Name:      "uploads_total",
			Help:      "Object storage uploads by outcome",
		},
		[]string{"status"},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imaginarium",
			Name:      "auth_attempts_total",
			Help:      "Sign-in and sign-up attempts by strategy and outcome",
		},
		[]string{"strategy", "status"},
	)
)

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// metricsMiddleware records every request under its route pattern.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/yashrajoria/catalog-import/pkg/aws"
)

// RequestMetrics is implemented by *pkg/aws.MetricsClient.
type RequestMetrics interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, count int, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

const metricsFlushTimeout = 5 * time.Second

// MetricsMiddleware records count and latency per route, plus 4xx/5xx counters.
// Metrics are sent after the response, off the request goroutine.
func MetricsMiddleware(metrics RequestMetrics, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil || !metrics.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dims := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Route":   route,
			"Status":  statusClass(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), metricsFlushTimeout)
			defer cancel()
			_ = metrics.RecordCount(ctx, awspkg.MetricHTTPRequests, 1, dims)
			_ = metrics.RecordLatency(ctx, awspkg.MetricHTTPLatency, elapsed, dims)
			if status >= 500 {
				_ = metrics.RecordCount(ctx, awspkg.MetricHTTP5xx, 1, dims)
			} else if status >= 400 {
				_ = metrics.RecordCount(ctx, awspkg.MetricHTTP4xx, 1, dims)
			}
		}()
	}
}

// statusClass turns 404 into "4xx".
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

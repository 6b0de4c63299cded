package middleware

import (
	"time"

	"github.com/SankaiAI/ZeroTask/internal/metrics"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics records request counts and durations per route. The route
// template (":provider" instead of the concrete value) keeps label
// cardinality bounded.
func HTTPMetrics(m metrics.Recorder) gin.HandlerFunc {
	// Noop recorder gets a passthrough middleware
	if _, ok := m.(*metrics.NoopMetrics); ok {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip the metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
